// Command hazardd is the local hazard-capture agent. It acquires the
// operator's position once at startup, drives detection cycles against the
// remote detection service, and keeps the durable hazard record store that
// the detection, live-capture, and map views read.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/detectaroad/hazard-capture/internal/adapter/detectapi"
	"github.com/detectaroad/hazard-capture/internal/adapter/httpadapter"
	"github.com/detectaroad/hazard-capture/internal/config"
	"github.com/detectaroad/hazard-capture/internal/domain"
	"github.com/detectaroad/hazard-capture/internal/location"
	"github.com/detectaroad/hazard-capture/internal/mapview"
	"github.com/detectaroad/hazard-capture/internal/observability"
	"github.com/detectaroad/hazard-capture/internal/session"
	"github.com/detectaroad/hazard-capture/internal/store"
)

// remoteReadiness reports ready when the detection service answers its
// health probe. Informational only; detect cycles are never gated on it.
type remoteReadiness struct {
	client *detectapi.Client
}

func (r remoteReadiness) CheckReadiness(ctx context.Context) error {
	return r.client.Health(ctx)
}

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	hazards := store.New(store.NewFileBackend(cfg.DataDir), cfg.StoreKey, logger, metrics)
	hazards.Load()
	logger.Info("hazard store loaded", "records", hazards.Count(), "key", cfg.StoreKey)

	var source location.Source
	if cfg.HasOperatorPosition {
		source = location.StaticSource{Position: domain.Coordinates{Lat: cfg.OperatorLat, Lon: cfg.OperatorLon}}
	}
	provider := location.NewProvider(source, logger)

	client := detectapi.NewClient(cfg.DetectAPIURL, cfg.DetectAPITimeout, logger, metrics)

	clock := clockwork.NewRealClock()
	upload := session.New(client, hazards, session.SubmitRemote, 0, clock, logger, metrics)
	live := session.New(nil, hazards, session.RecordOnly, cfg.LiveDwell, clock, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One fix per process; the fallback keeps the workflow usable when no
	// position is available.
	fix := provider.Acquire(ctx)
	if fix.Err != nil {
		logger.Warn("operating on fallback position", "error", fix.Err)
	}
	upload.SetCoordinates(fix.Coordinates)
	live.SetCoordinates(fix.Coordinates)

	mapAgg := mapview.New(hazards, location.Fallback)
	mapAgg.Recenter(fix.Coordinates)

	srv := httpadapter.NewServer(cfg.HTTPAddr, upload, live, hazards, mapAgg,
		remoteReadiness{client: client}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
