package mapview

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/detectaroad/hazard-capture/internal/domain"
)

type staticLister []domain.HazardRecord

func (l staticLister) List() []domain.HazardRecord { return l }

var defaultCenter = domain.Coordinates{Lat: 40.7128, Lon: -74.0060}

func TestAggregator_Recenter(t *testing.T) {
	a := New(staticLister{}, defaultCenter)
	assert.Equal(t, defaultCenter, a.Center())

	moved := domain.Coordinates{Lat: 51.5, Lon: -0.12}
	a.Recenter(moved)
	assert.Equal(t, moved, a.Center())

	// Idempotent.
	a.Recenter(moved)
	assert.Equal(t, moved, a.Center())
}

func TestAggregator_Stats(t *testing.T) {
	records := staticLister{
		{Lat: 1, Lon: 1, Kind: domain.KindVideo},
		{Lat: 2, Lon: 2, Kind: domain.KindLive},
		{Lat: 3, Lon: 3, Kind: domain.KindVideo},
	}
	a := New(records, defaultCenter)

	s := a.Stats()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.VideoCount)
	assert.Equal(t, 1, s.LiveCount)
	assert.Equal(t, s.Total, s.VideoCount+s.LiveCount)
	assert.Equal(t, len(records.List()), s.Total)
}

func TestAggregator_StatsEmpty(t *testing.T) {
	a := New(staticLister{}, defaultCenter)
	assert.Equal(t, Stats{}, a.Stats())
}

func TestAggregator_MarkersInStoreOrder(t *testing.T) {
	records := staticLister{
		{Lat: 1, Lon: 10, Timestamp: "2026-04-26T15:10:00Z", Kind: domain.KindVideo},
		{Lat: 2, Lon: 20, Timestamp: "2026-04-26T09:00:00Z", Kind: domain.KindLive},
	}
	a := New(records, defaultCenter)

	markers := a.Markers()
	assert.Equal(t, []Marker{
		{Lat: 1, Lon: 10, Kind: domain.KindVideo, Timestamp: "2026-04-26T15:10:00Z"},
		{Lat: 2, Lon: 20, Kind: domain.KindLive, Timestamp: "2026-04-26T09:00:00Z"},
	}, markers)

	// Restartable: a second derivation yields the same sequence.
	assert.Equal(t, markers, a.Markers())
}

func TestAggregator_Snapshot(t *testing.T) {
	records := staticLister{{Lat: 1, Lon: 1, Kind: domain.KindLive}}
	a := New(records, defaultCenter)
	a.Recenter(domain.Coordinates{Lat: 1, Lon: 1})

	v := a.Snapshot()
	assert.Equal(t, domain.Coordinates{Lat: 1, Lon: 1}, v.Center)
	assert.Equal(t, 1, v.Stats.Total)
	assert.Len(t, v.Markers, 1)
}
