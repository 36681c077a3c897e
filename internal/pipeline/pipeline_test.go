package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/emmab0118/aircasting/internal/discovery"
	"github.com/emmab0118/aircasting/internal/domain"
	"github.com/emmab0118/aircasting/internal/observability"
	"github.com/emmab0118/aircasting/internal/pipeline"
	"github.com/emmab0118/aircasting/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockGeocoder struct {
	coords domain.Coordinates
	found  bool
	err    error
}

func (m *mockGeocoder) Geocode(_ context.Context, _ string) (domain.Coordinates, bool, error) {
	return m.coords, m.found, m.err
}

type mockDiscoverer struct {
	ref    domain.SessionRef
	found  bool
	err    error
	bounds []*domain.GeoBounds
}

func (m *mockDiscoverer) Discover(_ context.Context, bounds *domain.GeoBounds) (domain.SessionRef, bool, error) {
	m.bounds = append(m.bounds, bounds)
	return m.ref, m.found, m.err
}

type mockResolver struct {
	result discovery.StreamResult
	found  bool
	err    error
}

func (m *mockResolver) Resolve(_ context.Context, _ string) (discovery.StreamResult, bool, error) {
	return m.result, m.found, m.err
}

type mockSink struct {
	outputs []sink.Output
	err     error
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) Write(_ context.Context, out sink.Output) error {
	if m.err != nil {
		return m.err
	}
	m.outputs = append(m.outputs, out)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func happyResolver() *mockResolver {
	return &mockResolver{
		found: true,
		result: discovery.StreamResult{
			Stream: domain.StreamDescriptor{StreamID: 9001, SensorName: "AirBeam3-PM2.5"},
			Window: 24 * time.Hour,
			Measurements: []domain.RawMeasurement{
				{"time": float64(1700000060), "value": 9.1},
				{"time": float64(1700000000), "value": 8.4},
				{"broken": true},
			},
		},
	}
}

func newPuller(g domain.Geocoder, d pipeline.Discoverer, r pipeline.Resolver, sinks ...sink.Sink) *pipeline.Puller {
	return pipeline.New(g, d, r, sinks, 50, testLogger(), observability.NewMetricsForTesting())
}

// --- tests ---

func TestPuller_Pull_HappyPath(t *testing.T) {
	geo := &mockGeocoder{coords: domain.Coordinates{Lat: 40.71, Lon: -74.01}, found: true}
	disc := &mockDiscoverer{ref: domain.SessionRef{ID: "1754", DiscoveredVia: "primary"}, found: true}
	res := happyResolver()
	out := &mockSink{}

	p := newPuller(geo, disc, res, out)
	result, err := p.Pull(context.Background(), "New York")
	require.NoError(t, err)

	assert.Equal(t, "1754", result.Session.ID)
	assert.Equal(t, int64(9001), result.Stream.StreamID)
	assert.Equal(t, 24*time.Hour, result.Window)
	assert.Equal(t, 2, result.Records) // timeless record dropped
	require.NotNil(t, result.Coords)
	assert.Equal(t, 40.71, result.Coords.Lat)

	// Discovery got bounds derived from the geocoded point.
	require.Len(t, disc.bounds, 1)
	require.NotNil(t, disc.bounds[0])
	assert.Less(t, disc.bounds[0].West, -74.01)

	// Sink got the normalized, sorted records with session provenance.
	require.Len(t, out.outputs, 1)
	got := out.outputs[0]
	assert.Equal(t, "primary", got.Session.DiscoveredVia)
	require.Len(t, got.Records, 2)
	assert.True(t, got.Records[0].Time.Before(got.Records[1].Time))

	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPuller_Pull_GeocodeMissSearchesUnbounded(t *testing.T) {
	geo := &mockGeocoder{found: false}
	disc := &mockDiscoverer{ref: domain.SessionRef{ID: "1", DiscoveredVia: "primary"}, found: true}

	p := newPuller(geo, disc, happyResolver(), &mockSink{})
	result, err := p.Pull(context.Background(), "Nowhereville")
	require.NoError(t, err)

	assert.Nil(t, result.Coords)
	require.Len(t, disc.bounds, 1)
	assert.Nil(t, disc.bounds[0])
}

func TestPuller_Pull_EmptyPlaceSkipsGeocoding(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("should not be called")}
	disc := &mockDiscoverer{ref: domain.SessionRef{ID: "1", DiscoveredVia: "primary"}, found: true}

	p := newPuller(geo, disc, happyResolver(), &mockSink{})
	_, err := p.Pull(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, disc.bounds, 1)
	assert.Nil(t, disc.bounds[0])
}

func TestPuller_Pull_GeocodeTransportErrorAborts(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("dns failure")}
	disc := &mockDiscoverer{}

	p := newPuller(geo, disc, happyResolver(), &mockSink{})
	_, err := p.Pull(context.Background(), "New York")
	require.Error(t, err)
	assert.Empty(t, disc.bounds)
}

func TestPuller_Pull_NoSession(t *testing.T) {
	geo := &mockGeocoder{found: false}
	disc := &mockDiscoverer{found: false}

	p := newPuller(geo, disc, happyResolver(), &mockSink{})
	_, err := p.Pull(context.Background(), "New York")
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrNoSession)
	assert.Contains(t, err.Error(), "New York")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPuller_Pull_NoStreamData(t *testing.T) {
	geo := &mockGeocoder{found: false}
	disc := &mockDiscoverer{ref: domain.SessionRef{ID: "1754", DiscoveredVia: "fallback:dormant:90d:AirBeam2-PM2.5"}, found: true}
	res := &mockResolver{found: false}

	p := newPuller(geo, disc, res, &mockSink{})
	_, err := p.Pull(context.Background(), "New York")
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrNoStreamData)
	// Failure context names the session and the strategy that found it.
	assert.Contains(t, err.Error(), "1754")
	assert.Contains(t, err.Error(), "fallback:dormant:90d:AirBeam2-PM2.5")
}

func TestPuller_Pull_SinkErrorPropagates(t *testing.T) {
	geo := &mockGeocoder{found: false}
	disc := &mockDiscoverer{ref: domain.SessionRef{ID: "1", DiscoveredVia: "primary"}, found: true}

	p := newPuller(geo, disc, happyResolver(), &mockSink{err: errors.New("disk full")})
	_, err := p.Pull(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mock sink")
}

func TestPuller_Pull_DiscoverErrorPropagates(t *testing.T) {
	geo := &mockGeocoder{found: false}
	disc := &mockDiscoverer{err: errors.New("bad gateway")}

	p := newPuller(geo, disc, happyResolver(), &mockSink{})
	_, err := p.Pull(context.Background(), "New York")
	require.Error(t, err)
	assert.NotErrorIs(t, err, pipeline.ErrNoSession)
}
