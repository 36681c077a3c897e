package aircasting

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire types for the AirCasting API. The session-listing endpoints have
// drifted over the years, so identifier decoding is deliberately loose; see
// the domain package doc for the full catalogue of shapes.

type sessionListResponse struct {
	Sessions []sessionPayload `json:"sessions"`
}

type sessionPayload struct {
	ID    flexID `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type fixedListResponse struct {
	Sessions []fallbackSession `json:"sessions"`
}

type streamListResponse struct {
	Streams []streamPayload `json:"streams"`
}

type streamPayload struct {
	StreamID        int64  `json:"stream_id"`
	SensorName      string `json:"sensor_name"`
	SensorUnit      string `json:"sensor_unit"`
	MeasurementType string `json:"measurement_type"`
}

// fixedQuery is the URL-encoded JSON query the legacy endpoints expect.
type fixedQuery struct {
	TimeFrom        int64   `json:"time_from"`
	TimeTo          int64   `json:"time_to"`
	Tags            string  `json:"tags"`
	Usernames       string  `json:"usernames"`
	West            float64 `json:"west"`
	East            float64 `json:"east"`
	South           float64 `json:"south"`
	North           float64 `json:"north"`
	SensorName      string  `json:"sensor_name"`
	MeasurementType string  `json:"measurement_type"`
	UnitSymbol      string  `json:"unit_symbol"`
}

// flexID decodes a JSON number or string into a string identifier.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty session id")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("session id is neither string nor number: %s", data)
	}
	*f = flexID(n.String())
	return nil
}

// fallbackSession decodes the legacy endpoint's session shapes: an object
// carrying "id", an object carrying "session_id", or a bare identifier.
// Anything else is reported as unmapped rather than silently zeroed.
type fallbackSession struct {
	ID string
}

func (s *fallbackSession) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("unmapped session shape: empty element")
	}

	if data[0] == '{' {
		var obj struct {
			ID        *flexID `json:"id"`
			SessionID *flexID `json:"session_id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("unmapped session shape: %w", err)
		}
		switch {
		case obj.ID != nil:
			s.ID = string(*obj.ID)
		case obj.SessionID != nil:
			s.ID = string(*obj.SessionID)
		default:
			return fmt.Errorf("unmapped session shape: object without id or session_id: %s", data)
		}
		return nil
	}

	var id flexID
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("unmapped session shape: %s", data)
	}
	s.ID = string(id)
	return nil
}
