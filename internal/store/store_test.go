package store

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detectaroad/hazard-capture/internal/domain"
	"github.com/detectaroad/hazard-capture/internal/observability"
)

const testKey = "hazard_detections"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(backend Backend) *Store {
	s := New(backend, testKey, testLogger(), observability.NewMetricsForTesting())
	s.Load()
	return s
}

func record(lat, lon float64, kind domain.Kind) domain.HazardRecord {
	return domain.HazardRecord{Lat: lat, Lon: lon, Timestamp: "2026-04-26T15:10:00Z", Kind: kind}
}

func TestStore_RoundTrip(t *testing.T) {
	backend := NewMemoryBackend()
	s := testStore(backend)

	records := []domain.HazardRecord{
		record(40.7128, -74.0060, domain.KindVideo),
		record(51.5, -0.12, domain.KindLive),
		record(48.85, 2.35, domain.KindVideo),
	}
	for _, r := range records {
		require.NoError(t, s.Add(r))
	}

	// A fresh store over the same backend sees exactly the same sequence.
	reloaded := testStore(backend)
	assert.Equal(t, records, reloaded.List())
}

func TestStore_FileBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := testStore(NewFileBackend(dir))

	require.NoError(t, s.Add(record(51.5, -0.12, domain.KindVideo)))

	reloaded := testStore(NewFileBackend(dir))
	require.Len(t, reloaded.List(), 1)
	assert.Equal(t, 51.5, reloaded.List()[0].Lat)
}

func TestStore_CorruptBlobStartsEmpty(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Put(testKey, []byte("{definitely not json")))

	s := testStore(backend)
	assert.Empty(t, s.List())
}

func TestStore_WrongShapeBlobStartsEmpty(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Put(testKey, []byte(`{"lat":1,"lon":2}`)))

	s := testStore(backend)
	assert.Empty(t, s.List())
}

func TestStore_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, testKey+".json"), []byte("garbage"), 0o644))

	s := testStore(NewFileBackend(dir))
	assert.Empty(t, s.List())
}

func TestStore_AbsentBlobStartsEmpty(t *testing.T) {
	s := testStore(NewMemoryBackend())
	assert.Empty(t, s.List())
	assert.Zero(t, s.Count())
}

func TestStore_ClearIdempotent(t *testing.T) {
	backend := NewMemoryBackend()
	s := testStore(backend)

	require.NoError(t, s.Add(record(51.5, -0.12, domain.KindVideo)))
	require.NoError(t, s.Add(record(51.6, -0.13, domain.KindLive)))

	require.NoError(t, s.Clear())
	assert.Empty(t, s.List())

	require.NoError(t, s.Clear())
	assert.Empty(t, s.List())

	// The persisted blob is gone too.
	_, err := backend.Get(testKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PreservesInsertionOrder(t *testing.T) {
	s := testStore(NewMemoryBackend())

	// Timestamps deliberately out of order; the store must not re-sort.
	first := domain.HazardRecord{Lat: 1, Lon: 1, Timestamp: "2026-04-26T15:10:00Z", Kind: domain.KindVideo}
	second := domain.HazardRecord{Lat: 2, Lon: 2, Timestamp: "2026-04-26T09:00:00Z", Kind: domain.KindLive}
	require.NoError(t, s.Add(first))
	require.NoError(t, s.Add(second))

	got := s.List()
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])
}

func TestStore_ListReturnsCopy(t *testing.T) {
	s := testStore(NewMemoryBackend())
	require.NoError(t, s.Add(record(1, 1, domain.KindVideo)))

	got := s.List()
	got[0].Lat = 99

	assert.Equal(t, 1.0, s.List()[0].Lat)
}

// failingBackend rejects writes to exercise the persistence-failure path.
type failingBackend struct {
	MemoryBackend
}

var errDiskFull = errors.New("disk full")

func (b *failingBackend) Put(string, []byte) error { return errDiskFull }

func TestStore_WriteFailureKeepsInMemoryAppend(t *testing.T) {
	s := New(&failingBackend{}, testKey, testLogger(), observability.NewMetricsForTesting())
	s.Load()

	err := s.Add(record(51.5, -0.12, domain.KindVideo))
	require.Error(t, err)
	assert.ErrorIs(t, err, errDiskFull)

	// The caller is told, but the current process still sees the record.
	assert.Equal(t, 1, s.Count())
}
