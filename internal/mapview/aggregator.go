// Package mapview is a read-only projection of the hazard store for the map
// dashboard: viewport center, summary statistics, and marker descriptors.
package mapview

import (
	"sync"

	"github.com/detectaroad/hazard-capture/internal/domain"
)

// Lister yields the current hazard sequence in insertion order.
type Lister interface {
	List() []domain.HazardRecord
}

// Stats summarizes the stored hazards. Total always equals
// VideoCount + LiveCount.
type Stats struct {
	Total      int `json:"total"`
	VideoCount int `json:"video_count"`
	LiveCount  int `json:"live_count"`
}

// Marker is one renderable map marker, in store order.
type Marker struct {
	Lat       float64     `json:"lat"`
	Lon       float64     `json:"lon"`
	Kind      domain.Kind `json:"type"`
	Timestamp string      `json:"timestamp"`
}

// View is the full dashboard payload.
type View struct {
	Center  domain.Coordinates `json:"center"`
	Stats   Stats              `json:"stats"`
	Markers []Marker           `json:"markers"`
}

// Aggregator recenters a viewport on the latest known position and derives
// stats and markers from the store on every read. Nothing is cached: the
// sequence is small and mutates infrequently.
type Aggregator struct {
	lister Lister

	mu     sync.RWMutex
	center domain.Coordinates
}

// New creates an aggregator starting at the given center.
func New(lister Lister, center domain.Coordinates) *Aggregator {
	return &Aggregator{lister: lister, center: center}
}

// Recenter moves the viewport center. Idempotent; stored data is untouched.
func (a *Aggregator) Recenter(c domain.Coordinates) {
	a.mu.Lock()
	a.center = c
	a.mu.Unlock()
}

// Center returns the current viewport center.
func (a *Aggregator) Center() domain.Coordinates {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.center
}

// Stats computes total and per-kind counts from the current sequence.
func (a *Aggregator) Stats() Stats {
	var s Stats
	for _, r := range a.lister.List() {
		s.Total++
		switch r.Kind {
		case domain.KindVideo:
			s.VideoCount++
		case domain.KindLive:
			s.LiveCount++
		}
	}
	return s
}

// Markers produces one marker per hazard record, in store order.
func (a *Aggregator) Markers() []Marker {
	records := a.lister.List()
	markers := make([]Marker, len(records))
	for i, r := range records {
		markers[i] = Marker{Lat: r.Lat, Lon: r.Lon, Kind: r.Kind, Timestamp: r.Timestamp}
	}
	return markers
}

// Snapshot bundles center, stats, and markers from one read of the store.
func (a *Aggregator) Snapshot() View {
	return View{
		Center:  a.Center(),
		Stats:   a.Stats(),
		Markers: a.Markers(),
	}
}
