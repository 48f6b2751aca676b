package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies how a hazard observation was produced.
type Kind string

const (
	// KindVideo marks observations from an uploaded road video.
	KindVideo Kind = "video"
	// KindLive marks observations from a still frame captured off the live feed.
	KindLive Kind = "live"
)

// Valid reports whether k is a known observation kind.
func (k Kind) Valid() bool {
	return k == KindVideo || k == KindLive
}

// Coordinates is a WGS-84 latitude/longitude pair. Captured once per
// detection session and immutable afterwards; geographic range is assumed,
// not enforced.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// HazardRecord is one confirmed hazard observation. Records are created only
// after the detection service reports success, are never updated in place,
// and live in the store in insertion order, which is the canonical
// chronological order regardless of timestamp values.
type HazardRecord struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timestamp string  `json:"timestamp"` // ISO-8601, informational only
	Kind      Kind    `json:"type"`
}

// NewRecord stamps a hazard observation at the given position using the
// package clock.
func NewRecord(c Coordinates, kind Kind) HazardRecord {
	return HazardRecord{
		Lat:       c.Lat,
		Lon:       c.Lon,
		Timestamp: clock.Now().UTC().Format(time.RFC3339),
		Kind:      kind,
	}
}

// Evidence is the payload submitted for hazard detection: either raw video
// bytes from a selected file or a single still frame from the camera feed.
type Evidence struct {
	Name string
	Data []byte
	Kind Kind
}

// EncodeRecords serializes records as the persisted JSON-array blob layout.
func EncodeRecords(records []HazardRecord) ([]byte, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode hazard records: %w", err)
	}
	return data, nil
}

// DecodeRecords parses a persisted blob back into an ordered record
// sequence. Any record carrying an unknown kind makes the whole blob
// invalid, since a partially-trusted sequence has no defined order.
func DecodeRecords(data []byte) ([]HazardRecord, error) {
	var records []HazardRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode hazard records: %w", err)
	}
	for i, r := range records {
		if !r.Kind.Valid() {
			return nil, fmt.Errorf("decode hazard records: record %d has unknown kind %q", i, r.Kind)
		}
	}
	return records, nil
}
