// Package store keeps the durable, append-only sequence of hazard
// observations that the detection, live-capture, and map views all read.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/detectaroad/hazard-capture/internal/domain"
	"github.com/detectaroad/hazard-capture/internal/observability"
)

// Store is the hazard repository: an in-memory record sequence mirrored to a
// single blob in the backend on every append. There is one logical writer
// (the active session); readers get point-in-time copies.
type Store struct {
	backend Backend
	key     string
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	records []domain.HazardRecord
}

// New creates a hazard store over the given backend and storage key. Call
// Load before first use to pick up previously persisted records.
func New(backend Backend, key string, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{
		backend: backend,
		key:     key,
		logger:  logger,
		metrics: metrics,
	}
}

// Load reads the persisted blob into memory. An absent blob yields an empty
// store. A blob that cannot be decoded as a record sequence also yields an
// empty store: the failure is logged and counted, never propagated, so a
// corrupt file costs history but not availability.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	defer s.updateGauge()

	data, err := s.backend.Get(s.key)
	if errors.Is(err, ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("hazard blob unreadable, starting empty", "key", s.key, "error", err)
		s.metrics.StoreLoadResets.Inc()
		return
	}

	records, err := domain.DecodeRecords(data)
	if err != nil {
		s.logger.Warn("hazard blob corrupt, starting empty", "key", s.key, "error", err)
		s.metrics.StoreLoadResets.Inc()
		return
	}
	s.records = records
}

// List returns the current record sequence in insertion order.
func (s *Store) List() []domain.HazardRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.HazardRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Add appends a record and persists the full updated sequence. On a
// persistence failure the in-memory append is kept, so the current process
// still sees the observation, and the error is returned for the caller to
// surface.
func (s *Store) Add(record domain.HazardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	s.updateGauge()

	data, err := domain.EncodeRecords(s.records)
	if err != nil {
		s.metrics.StoreWriteErrors.Inc()
		return fmt.Errorf("persist hazard records: %w", err)
	}
	if err := s.backend.Put(s.key, data); err != nil {
		s.metrics.StoreWriteErrors.Inc()
		s.logger.Error("hazard record kept in memory only", "key", s.key, "error", err)
		return fmt.Errorf("persist hazard records: %w", err)
	}
	return nil
}

// Clear empties the store and removes the persisted blob. Idempotent.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.updateGauge()

	if err := s.backend.Delete(s.key); err != nil {
		return fmt.Errorf("clear hazard records: %w", err)
	}
	return nil
}

// updateGauge must be called with the lock held.
func (s *Store) updateGauge() {
	s.metrics.HazardsStored.Set(float64(len(s.records)))
}
