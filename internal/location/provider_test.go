package location

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detectaroad/hazard-capture/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingSource records how many times a position was requested.
type countingSource struct {
	calls  int
	coords domain.Coordinates
	err    error
}

func (s *countingSource) CurrentPosition(context.Context) (domain.Coordinates, error) {
	s.calls++
	return s.coords, s.err
}

func TestProvider_Success(t *testing.T) {
	src := &countingSource{coords: domain.Coordinates{Lat: 51.5, Lon: -0.12}}
	p := NewProvider(src, testLogger())

	fix := p.Acquire(context.Background())
	require.NoError(t, fix.Err)
	assert.Equal(t, domain.Coordinates{Lat: 51.5, Lon: -0.12}, fix.Coordinates)
}

func TestProvider_FallbackOnFailure(t *testing.T) {
	src := &countingSource{err: errors.New("permission denied")}
	p := NewProvider(src, testLogger())

	fix := p.Acquire(context.Background())
	require.Error(t, fix.Err)
	assert.Equal(t, domain.Coordinates{Lat: 40.7128, Lon: -74.0060}, fix.Coordinates)
}

func TestProvider_NilSourceFallsBack(t *testing.T) {
	p := NewProvider(nil, testLogger())

	fix := p.Acquire(context.Background())
	assert.ErrorIs(t, fix.Err, ErrNoSource)
	assert.Equal(t, Fallback, fix.Coordinates)
}

func TestProvider_AcquiresExactlyOnce(t *testing.T) {
	src := &countingSource{coords: domain.Coordinates{Lat: 1, Lon: 2}}
	p := NewProvider(src, testLogger())

	first := p.Acquire(context.Background())
	second := p.Acquire(context.Background())

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first, second)
}

func TestProvider_FailureIsNotRetried(t *testing.T) {
	src := &countingSource{err: errors.New("timeout")}
	p := NewProvider(src, testLogger())

	p.Acquire(context.Background())
	fix := p.Acquire(context.Background())

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, Fallback, fix.Coordinates)
}

func TestStaticSource(t *testing.T) {
	src := StaticSource{Position: domain.Coordinates{Lat: 48.85, Lon: 2.35}}
	coords, err := src.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 48.85, coords.Lat)
}
