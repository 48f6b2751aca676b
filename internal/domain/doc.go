// Package domain models the hazard-capture workflow's data: operator
// coordinates, hazard observations, and detection evidence.
//
// # Persisted layout
//
// The hazard store serializes its full record sequence as one JSON array
// under a single storage key, e.g.
//
//	[{"lat":40.7128,"lon":-74.006,"timestamp":"2026-04-26T15:10:00Z","type":"video"}]
//
// There is no versioning or migration scheme. A blob that fails to decode is
// treated as an empty store by the reader, never as a fatal error, so a
// corrupt file costs history but not availability.
//
// # Ordering
//
// Insertion order is the canonical chronological order. Timestamps are
// informational; readers must not re-sort on them.
package domain
