// Package location acquires the operator's position once per process and
// hands the same fix to every consumer.
package location

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/detectaroad/hazard-capture/internal/domain"
)

// Fallback is the fixed position substituted when no fix can be acquired
// (lower Manhattan). Downstream consumers that require coordinates are never
// blocked, at the cost of silently geographically wrong records for
// operators who are not actually there. That trade-off is intentional:
// usability over strict correctness.
var Fallback = domain.Coordinates{Lat: 40.7128, Lon: -74.0060}

// ErrNoSource is reported when the host has no geolocation capability at all.
var ErrNoSource = errors.New("geolocation is not supported by this host")

// Source is the host geolocation capability: a single position request that
// either yields coordinates or fails.
type Source interface {
	CurrentPosition(ctx context.Context) (domain.Coordinates, error)
}

// Fix is the outcome of a position acquisition. Err is non-nil when the
// fallback was substituted; Coordinates is always usable either way.
type Fix struct {
	Coordinates domain.Coordinates
	Err         error
}

// Provider performs a one-shot position acquisition. The fix is requested
// exactly once per provider lifetime; re-acquisition requires a new Provider.
type Provider struct {
	source Source
	logger *slog.Logger

	once sync.Once
	fix  Fix
}

// NewProvider creates a provider over the given source. A nil source models
// a host without geolocation; Acquire then reports ErrNoSource with the
// fallback position.
func NewProvider(source Source, logger *slog.Logger) *Provider {
	return &Provider{source: source, logger: logger}
}

// Acquire returns the operator's position, requesting it from the source on
// the first call and replaying the same fix afterwards.
func (p *Provider) Acquire(ctx context.Context) Fix {
	p.once.Do(func() {
		if p.source == nil {
			p.logger.Warn("no geolocation source, using fallback position",
				"lat", Fallback.Lat, "lon", Fallback.Lon)
			p.fix = Fix{Coordinates: Fallback, Err: ErrNoSource}
			return
		}

		coords, err := p.source.CurrentPosition(ctx)
		if err != nil {
			p.logger.Warn("position acquisition failed, using fallback position",
				"lat", Fallback.Lat, "lon", Fallback.Lon, "error", err)
			p.fix = Fix{Coordinates: Fallback, Err: err}
			return
		}
		p.logger.Info("position acquired", "lat", coords.Lat, "lon", coords.Lon)
		p.fix = Fix{Coordinates: coords}
	})
	return p.fix
}

// StaticSource is a Source that always reports a configured position, used
// when the operator's location is supplied through configuration rather
// than a live capability.
type StaticSource struct {
	Position domain.Coordinates
}

func (s StaticSource) CurrentPosition(context.Context) (domain.Coordinates, error) {
	return s.Position, nil
}
