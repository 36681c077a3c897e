package domain

import "time"

// SessionQuery filters the primary session-listing endpoint. Zero Start/End
// mean no time filter; nil Bounds means no geographic filter.
type SessionQuery struct {
	Start  time.Time
	End    time.Time
	Bounds *GeoBounds
}

// FallbackQuery scopes one legacy session-listing request to a single cascade
// combination.
type FallbackQuery struct {
	Kind            string // "active" or "dormant"
	From            time.Time
	To              time.Time
	Bounds          GeoBounds
	SensorName      string
	MeasurementType string
	UnitSymbol      string
}
