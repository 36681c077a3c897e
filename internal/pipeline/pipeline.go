// Package pipeline orchestrates one pull: geocode the place, discover a
// session, resolve a stream with data, normalize, and fan out to sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/emmab0118/aircasting/internal/discovery"
	"github.com/emmab0118/aircasting/internal/domain"
	"github.com/emmab0118/aircasting/internal/observability"
	"github.com/emmab0118/aircasting/internal/sink"
)

// Terminal outcomes after exhausting every strategy. Callers match with
// errors.Is to report "nothing found" instead of a failure.
var (
	ErrNoSession    = errors.New("no session found")
	ErrNoStreamData = errors.New("no stream with recent data")
)

// Discoverer finds a session inside optional bounds.
type Discoverer interface {
	Discover(ctx context.Context, bounds *domain.GeoBounds) (domain.SessionRef, bool, error)
}

// Resolver finds a stream with data on a session.
type Resolver interface {
	Resolve(ctx context.Context, sessionID string) (discovery.StreamResult, bool, error)
}

// Puller runs the end-to-end pull.
type Puller struct {
	geocoder   domain.Geocoder
	discoverer Discoverer
	resolver   Resolver
	sinks      []sink.Sink
	radiusKm   float64
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
}

// New creates a Puller. A nil geocoder disables place resolution, leaving
// discovery unbounded geographically.
func New(geocoder domain.Geocoder, d Discoverer, r Resolver, sinks []sink.Sink, radiusKm float64, logger *slog.Logger, metrics *observability.Metrics) *Puller {
	return &Puller{
		geocoder:   geocoder,
		discoverer: d,
		resolver:   r,
		sinks:      sinks,
		radiusKm:   radiusKm,
		logger:     logger,
		metrics:    metrics,
	}
}

// PullResult summarizes a successful pull.
type PullResult struct {
	Place   string
	Coords  *domain.Coordinates
	Session domain.SessionRef
	Stream  domain.StreamDescriptor
	Window  time.Duration
	Records int
}

// CheckReadiness returns nil once at least one pull has succeeded.
func (p *Puller) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no successful pull yet")
	}
	return nil
}

// Pull runs one discovery-to-sink cycle for a place. An empty place, or a
// geocoding miss, searches without geographic bounds.
func (p *Puller) Pull(ctx context.Context, place string) (PullResult, error) {
	start := time.Now()

	result, err := p.pull(ctx, place)
	switch {
	case err == nil:
		p.metrics.Pulls.WithLabelValues("success").Inc()
		p.metrics.PullDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	case errors.Is(err, ErrNoSession) || errors.Is(err, ErrNoStreamData):
		p.metrics.Pulls.WithLabelValues("not_found").Inc()
	default:
		p.metrics.Pulls.WithLabelValues("error").Inc()
	}
	return result, err
}

func (p *Puller) pull(ctx context.Context, place string) (PullResult, error) {
	bounds, coords, err := p.locate(ctx, place)
	if err != nil {
		return PullResult{}, err
	}

	session, found, err := p.discoverer.Discover(ctx, bounds)
	if err != nil {
		return PullResult{}, fmt.Errorf("discover session near %q: %w", place, err)
	}
	if !found {
		return PullResult{}, fmt.Errorf("place %q: %w", place, ErrNoSession)
	}
	session.Coords = coords

	stream, found, err := p.resolver.Resolve(ctx, session.ID)
	if err != nil {
		return PullResult{}, fmt.Errorf("session %s (via %s): %w", session.ID, session.DiscoveredVia, err)
	}
	if !found {
		return PullResult{}, fmt.Errorf("session %s (via %s): %w", session.ID, session.DiscoveredVia, ErrNoStreamData)
	}

	records := domain.Normalize(stream.Measurements)
	p.metrics.RecordsNormalized.Add(float64(len(records)))
	p.metrics.RecordsDropped.Add(float64(len(stream.Measurements) - len(records)))

	out := sink.Output{
		Place:   place,
		Session: session,
		Stream:  stream.Stream,
		Records: records,
	}
	for _, s := range p.sinks {
		if err := s.Write(ctx, out); err != nil {
			return PullResult{}, fmt.Errorf("%s sink: %w", s.Name(), err)
		}
	}

	p.logger.Info("pull complete",
		"place", place,
		"session_id", session.ID,
		"via", session.DiscoveredVia,
		"stream_id", stream.Stream.StreamID,
		"sensor", stream.Stream.SensorName,
		"window", stream.Window.String(),
		"records", len(records),
		"dropped", len(stream.Measurements)-len(records),
	)

	return PullResult{
		Place:   place,
		Coords:  coords,
		Session: session,
		Stream:  stream.Stream,
		Window:  stream.Window,
		Records: len(records),
	}, nil
}

// locate geocodes the place and builds search bounds. A miss falls back to
// unbounded search; only transport failures abort.
func (p *Puller) locate(ctx context.Context, place string) (*domain.GeoBounds, *domain.Coordinates, error) {
	if place == "" || p.geocoder == nil {
		return nil, nil, nil
	}

	coords, found, err := p.geocoder.Geocode(ctx, place)
	if err != nil {
		return nil, nil, fmt.Errorf("geocode %q: %w", place, err)
	}
	if !found {
		p.logger.Warn("place not found, searching without bounds", "place", place)
		return nil, nil, nil
	}

	bounds, err := domain.ComputeBounds(coords.Lat, coords.Lon, p.radiusKm)
	if err != nil {
		return nil, nil, fmt.Errorf("bounds for %q: %w", place, err)
	}

	p.logger.Info("place resolved", "place", place, "lat", coords.Lat, "lon", coords.Lon, "radius_km", p.radiusKm)
	return &bounds, &coords, nil
}
