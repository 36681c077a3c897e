package domain

import "time"

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeoBounds is a rectangular search area in degrees.
// West < East and South < North for any bounds produced by ComputeBounds.
type GeoBounds struct {
	West  float64 `json:"west"`
	East  float64 `json:"east"`
	South float64 `json:"south"`
	North float64 `json:"north"`
}

// Session is one entry from the primary session-listing endpoint.
type Session struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// SessionTypeFixed marks a stationary sensor deployment.
const SessionTypeFixed = "FixedSession"

// SessionRef identifies a discovered session and how it was found.
// DiscoveredVia is "primary" for the v3 endpoint or
// "fallback:<kind>:<days>d:<sensor>" for a cascade hit, so a failed pull can
// be reproduced with the exact query that found the session.
type SessionRef struct {
	ID            string       `json:"id"`
	DiscoveredVia string       `json:"discovered_via"`
	Coords        *Coordinates `json:"coords,omitempty"`
}

// StreamDescriptor describes one sensor channel on a session.
type StreamDescriptor struct {
	StreamID        int64  `json:"stream_id"`
	SensorName      string `json:"sensor_name"`
	SensorUnit      string `json:"sensor_unit"`
	MeasurementType string `json:"measurement_type"`
}

// RawMeasurement is a provider-native measurement record. Key names vary by
// session era; Normalize resolves them against the documented alias lists.
type RawMeasurement map[string]any

// CanonicalRecord is the uniform output row: a guaranteed-parseable UTC time,
// a best-effort numeric value, and every original field preserved.
type CanonicalRecord struct {
	Time   time.Time      `json:"time"`
	Value  *float64       `json:"value"`
	Fields map[string]any `json:"fields,omitempty"`
}
