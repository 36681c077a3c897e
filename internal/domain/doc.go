// Package domain models AirCasting fixed-session data.
//
// # Data Source
//
// Measurements come from the AirCasting open API (https://aircasting.org),
// which exposes sessions recorded by AirBeam particulate-matter sensors and
// similar devices. A session is one deployment of a device; a fixed session
// is stationary, as opposed to a mobile recording. Each session carries one
// or more streams, one per sensor channel (PM2.5, temperature, humidity...).
//
// # Schema Drift
//
// The API has changed shape several times and old sessions are served in the
// format they were recorded under, so the same endpoint can return records
// with different key names. Two families of drift matter here:
//
// Timestamp keys, in the order they are tried:
//
//	time, measured_at, timestamp, recorded_at, created_at
//
// and timestamp encodings: epoch seconds, epoch milliseconds, or ISO-8601
// strings. Numeric values below 10^10 are taken as seconds, at or above as
// milliseconds; 10^10 seconds is the year 2286, 10^10 milliseconds is 2001,
// so real data never straddles the threshold.
//
// Value keys, in the order they are tried:
//
//	value, value_calibrated, value_ugm3, value_rounded, measurement_value
//
// [Normalize] resolves these aliases into [CanonicalRecord], dropping any
// record whose timestamp cannot be parsed. Dropping rather than erroring is
// deliberate: a session with a handful of corrupt rows is still usable.
//
// # Fallback Session Shapes
//
// The legacy session-listing endpoints return session identifiers as an
// object with "id", an object with "session_id", or a bare identifier,
// depending on the era of the session. The adapter decodes all three; any
// other shape is an explicit decode error, not a silent zero.
package domain
