// Package sink fans the canonical measurement table out to destinations:
// a CSV file always, Kafka and Postgres when configured.
package sink

import (
	"context"

	"github.com/emmab0118/aircasting/internal/domain"
)

// Output is one pull's worth of normalized data plus its provenance.
type Output struct {
	Place   string
	Session domain.SessionRef
	Stream  domain.StreamDescriptor
	Records []domain.CanonicalRecord
}

// Sink persists or publishes a pull output.
type Sink interface {
	Name() string
	Write(ctx context.Context, out Output) error
}
