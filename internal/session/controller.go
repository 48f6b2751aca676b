// Package session drives one upload-or-capture detection cycle through its
// state machine and appends a hazard record on success.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/detectaroad/hazard-capture/internal/domain"
	"github.com/detectaroad/hazard-capture/internal/observability"
)

// State is the phase of the current detection session.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingInput  State = "awaiting_input"
	StateSubmitting     State = "submitting"
	StateAwaitingResult State = "awaiting_result"
	StateComplete       State = "complete"
	StateFailed         State = "failed"
)

// SubmitPolicy names whether a cycle submits evidence to the remote
// detector. Live capture records locally without a network call; that
// asymmetry with uploads is deliberate and configured, not accidental.
type SubmitPolicy int

const (
	// SubmitRemote sends evidence to the detection endpoint and treats the
	// response body as the processed artifact.
	SubmitRemote SubmitPolicy = iota
	// RecordOnly skips the endpoint: the evidence itself becomes the
	// artifact and the observation is recorded immediately.
	RecordOnly
)

var (
	// ErrNoEvidence rejects a detect action before any evidence is selected.
	ErrNoEvidence = errors.New("no evidence selected")
	// ErrNoCoordinates rejects a detect action before a position is known.
	ErrNoCoordinates = errors.New("location unavailable; enable location services")
	// ErrBusy rejects a detect action while another cycle is in flight.
	// Calls are rejected, never queued.
	ErrBusy = errors.New("a detection cycle is already in flight")
	// ErrSuperseded reports that a cycle finished after the session was
	// reset; its result was discarded and no record was created.
	ErrSuperseded = errors.New("detection cycle superseded")
)

// Detector submits evidence for processing and returns the artifact.
type Detector interface {
	Detect(ctx context.Context, ev domain.Evidence, coords domain.Coordinates) ([]byte, error)
}

// Recorder appends confirmed hazard observations.
type Recorder interface {
	Add(domain.HazardRecord) error
}

// Snapshot is a point-in-time view of the session for rendering.
type Snapshot struct {
	State        State
	EvidenceName string
	Failure      string
	HasArtifact  bool
}

// Controller owns one detection session at a time. A new cycle may only
// start once the previous one has finished or the session was reset.
type Controller struct {
	detector Detector
	recorder Recorder
	policy   SubmitPolicy
	dwell    time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	state    State
	evidence *domain.Evidence
	coords   *domain.Coordinates
	artifact []byte
	failure  string
	inFlight bool
	gen      uint64
}

// New creates a session controller. detector may be nil under RecordOnly.
// dwell only applies to RecordOnly cycles: how long the captured frame stays
// on display before the session auto-clears to idle.
func New(detector Detector, recorder Recorder, policy SubmitPolicy, dwell time.Duration,
	clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	return &Controller{
		detector: detector,
		recorder: recorder,
		policy:   policy,
		dwell:    dwell,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		state:    StateIdle,
	}
}

// SetCoordinates installs the session position. Called once after the
// provider's fix; immutable for the cycles that follow.
func (c *Controller) SetCoordinates(coords domain.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coords = &coords
}

// SelectEvidence stages evidence for the next cycle and clears any previous
// result. Rejected while a cycle is in flight.
func (c *Controller) SelectEvidence(ev domain.Evidence) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		return ErrBusy
	}
	c.evidence = &ev
	c.artifact = nil
	c.failure = ""
	c.gen++
	c.state = StateAwaitingInput
	return nil
}

// Reset abandons the session and returns to idle. A cycle still in flight
// keeps running on the network but its result is discarded on arrival.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evidence = nil
	c.artifact = nil
	c.failure = ""
	c.gen++
	if !c.inFlight {
		c.state = StateIdle
	}
}

// Detect runs one full cycle: validate inputs, submit (or, under RecordOnly,
// skip submission), and on success append exactly one hazard record stamped
// with the session coordinates. Validation failures leave the state machine
// untouched. The artifact is returned for display or download.
func (c *Controller) Detect(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.evidence == nil {
		c.mu.Unlock()
		return nil, ErrNoEvidence
	}
	if c.coords == nil {
		c.mu.Unlock()
		return nil, ErrNoCoordinates
	}

	ev := *c.evidence
	coords := *c.coords
	gen := c.gen
	c.state = StateSubmitting
	c.inFlight = true
	c.failure = ""
	c.mu.Unlock()

	cycleID := uuid.NewString()
	logger := c.logger.With("cycle_id", cycleID, "kind", ev.Kind)
	c.metrics.CyclesStarted.WithLabelValues(string(ev.Kind)).Inc()

	var artifact []byte
	var detectErr error
	if c.policy == SubmitRemote {
		c.setState(StateAwaitingResult)
		c.metrics.DetectInFlight.Set(1)
		logger.Info("submitting evidence", "name", ev.Name, "bytes", len(ev.Data))
		artifact, detectErr = c.detector.Detect(ctx, ev, coords)
		c.metrics.DetectInFlight.Set(0)
	} else {
		artifact = ev.Data
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if gen != c.gen {
		logger.Info("cycle superseded, result discarded")
		c.metrics.CyclesFailed.WithLabelValues(string(ev.Kind), "superseded").Inc()
		if c.evidence == nil {
			c.state = StateIdle
		}
		return nil, ErrSuperseded
	}

	if detectErr != nil {
		c.state = StateFailed
		c.failure = detectErr.Error()
		c.metrics.CyclesFailed.WithLabelValues(string(ev.Kind), "remote").Inc()
		logger.Warn("detection cycle failed", "error", detectErr)
		return nil, fmt.Errorf("detection cycle: %w", detectErr)
	}

	record := domain.NewRecord(coords, ev.Kind)
	if err := c.recorder.Add(record); err != nil {
		// The store keeps the append in memory; surfaced as a warning, not
		// a failed cycle.
		logger.Warn("hazard record not persisted", "error", err)
	}

	c.artifact = artifact
	c.state = StateComplete
	c.metrics.CyclesCompleted.WithLabelValues(string(ev.Kind)).Inc()
	logger.Info("detection cycle complete", "lat", record.Lat, "lon", record.Lon)

	if c.policy == RecordOnly && c.dwell > 0 {
		g := c.gen
		c.clock.AfterFunc(c.dwell, func() { c.clearAfterDwell(g) })
	}

	return artifact, nil
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:       c.state,
		Failure:     c.failure,
		HasArtifact: len(c.artifact) > 0,
	}
	if c.evidence != nil {
		s.EvidenceName = c.evidence.Name
	}
	return s
}

// Artifact returns a copy of the most recent processed artifact, or nil.
func (c *Controller) Artifact() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.artifact == nil {
		return nil
	}
	out := make([]byte, len(c.artifact))
	copy(out, c.artifact)
	return out
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// clearAfterDwell returns a completed capture session to idle once the
// display dwell elapses, unless a newer cycle has taken over.
func (c *Controller) clearAfterDwell(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != StateComplete {
		return
	}
	c.evidence = nil
	c.artifact = nil
	c.state = StateIdle
}
