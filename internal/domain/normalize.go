package domain

import (
	"encoding/json"
	"maps"
	"sort"
	"strconv"
	"time"
)

// timeKeys are the timestamp aliases the provider has used, in priority order.
var timeKeys = []string{"time", "measured_at", "timestamp", "recorded_at", "created_at"}

// valueKeys are the value aliases the provider has used, in priority order.
var valueKeys = []string{"value", "value_calibrated", "value_ugm3", "value_rounded", "measurement_value"}

// msThreshold splits epoch seconds from epoch milliseconds: 10^10 seconds is
// the year 2286, 10^10 milliseconds is 2001.
const msThreshold = 10_000_000_000

// timeLayouts are tried in order for string timestamps. Layouts without a
// zone are taken as UTC, which is how the provider serves them.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Normalize maps raw provider records into canonical time/value rows. It is
// total: records whose timestamp is absent or unparsable are dropped, never
// errored. Output is stably sorted ascending by time, so records sharing a
// timestamp keep their input order. All original fields are preserved.
func Normalize(raws []RawMeasurement) []CanonicalRecord {
	records := make([]CanonicalRecord, 0, len(raws))
	for _, raw := range raws {
		t, ok := resolveTime(raw)
		if !ok {
			continue
		}
		records = append(records, CanonicalRecord{
			Time:   t,
			Value:  resolveValue(raw),
			Fields: maps.Clone(raw),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Time.Before(records[j].Time)
	})
	return records
}

// resolveTime takes the first present timestamp alias and parses it.
func resolveTime(raw RawMeasurement) (time.Time, bool) {
	for _, key := range timeKeys {
		if v, ok := raw[key]; ok {
			return parseTimestamp(v)
		}
	}
	return time.Time{}, false
}

// parseTimestamp handles the provider's historical encodings: epoch seconds,
// epoch milliseconds, and ISO-8601 strings.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return parseEpoch(t), true
	case int:
		return parseEpoch(float64(t)), true
	case int64:
		return parseEpoch(float64(t)), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return parseEpoch(f), true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// parseEpoch disambiguates seconds from milliseconds by magnitude and keeps
// sub-second precision for fractional-second inputs.
func parseEpoch(v float64) time.Time {
	if v >= msThreshold {
		return time.UnixMilli(int64(v)).UTC()
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// resolveValue takes the first present value alias, like the timestamp
// resolution: presence wins, so an explicit null value on a higher-priority
// key shadows a number on a lower one.
func resolveValue(raw RawMeasurement) *float64 {
	for _, key := range valueKeys {
		if v, ok := raw[key]; ok {
			return toFloat(v)
		}
	}
	return nil
}

func toFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return &f
		}
	}
	return nil
}
