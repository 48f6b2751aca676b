// Package httpadapter exposes the agent's local HTTP surface: the
// UI-facing detection routes plus health, readiness, and metrics endpoints.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/detectaroad/hazard-capture/internal/domain"
	"github.com/detectaroad/hazard-capture/internal/mapview"
	"github.com/detectaroad/hazard-capture/internal/session"
	"github.com/detectaroad/hazard-capture/internal/store"
)

// ReadinessChecker reports whether the agent is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server routes operator-UI requests into the session controllers and the
// hazard store.
type Server struct {
	httpServer *http.Server
	upload     *session.Controller
	live       *session.Controller
	hazards    *store.Store
	mapAgg     *mapview.Aggregator
	logger     *slog.Logger
}

// NewServer creates the agent HTTP server. upload drives file-based cycles,
// live drives record-only capture cycles.
func NewServer(addr string, upload, live *session.Controller, hazards *store.Store,
	mapAgg *mapview.Aggregator, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Minute, // video uploads from the UI can be large
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		upload:  upload,
		live:    live,
		hazards: hazards,
		mapAgg:  mapAgg,
		logger:  logger,
	}

	mux.HandleFunc("POST /api/detect", s.handleDetect)
	mux.HandleFunc("POST /api/live/capture", s.handleLiveCapture)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/hazards", s.handleListHazards)
	mux.HandleFunc("DELETE /api/hazards", s.handleClearHazards)
	mux.HandleFunc("GET /api/map", s.handleMap)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleDetect runs one upload cycle: evidence from the "video" form file,
// artifact streamed back on success.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	ev, err := evidenceFromForm(r, "video", domain.KindVideo)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.upload.SelectEvidence(ev); err != nil {
		s.writeCycleError(w, s.upload, err)
		return
	}

	artifact, err := s.upload.Detect(r.Context())
	if err != nil {
		s.writeCycleError(w, s.upload, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="processed_video.mp4"`)
	if _, err := w.Write(artifact); err != nil {
		s.logger.Warn("artifact write interrupted", "error", err)
	}
}

// handleLiveCapture records one captured frame from the "frame" form file.
func (s *Server) handleLiveCapture(w http.ResponseWriter, r *http.Request) {
	ev, err := evidenceFromForm(r, "frame", domain.KindLive)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.live.SelectEvidence(ev); err != nil {
		s.writeCycleError(w, s.live, err)
		return
	}

	if _, err := s.live.Detect(r.Context()); err != nil {
		s.writeCycleError(w, s.live, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "recorded",
		"count":  s.hazards.Count(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	snap := s.upload.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":        snap.State,
		"evidence":     snap.EvidenceName,
		"failure":      snap.Failure,
		"has_artifact": snap.HasArtifact,
	})
}

func (s *Server) handleListHazards(w http.ResponseWriter, _ *http.Request) {
	records := s.hazards.List()
	if records == nil {
		records = []domain.HazardRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleClearHazards(w http.ResponseWriter, _ *http.Request) {
	if err := s.hazards.Clear(); err != nil {
		s.logger.Error("clear hazards failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not clear hazard records")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mapAgg.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// writeCycleError maps session errors to HTTP statuses. Validation errors
// are the operator's to fix; busy and superseded mean "try again";
// everything else is the remote cycle failing.
func (s *Server) writeCycleError(w http.ResponseWriter, ctl *session.Controller, err error) {
	switch {
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNoEvidence), errors.Is(err, session.ErrNoCoordinates):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		message := ctl.Snapshot().Failure
		if message == "" {
			message = err.Error()
		}
		writeError(w, http.StatusBadGateway, message)
	}
}

func evidenceFromForm(r *http.Request, field string, kind domain.Kind) (domain.Evidence, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return domain.Evidence{}, fmt.Errorf("missing %q form file", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.Evidence{}, fmt.Errorf("read %q form file: %w", field, err)
	}
	return domain.Evidence{Name: header.Filename, Data: data, Kind: kind}, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
