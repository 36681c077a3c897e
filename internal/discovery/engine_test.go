package discovery_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/emmab0118/aircasting/internal/discovery"
	"github.com/emmab0118/aircasting/internal/domain"
	"github.com/emmab0118/aircasting/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLister scripts responses per query and records call order.
type mockLister struct {
	primary       []domain.Session
	widened       []domain.Session
	primaryErr    error
	primaryCalls  []domain.SessionQuery
	fallbackCalls []domain.FallbackQuery

	// fallbackRespond decides each cascade step's response; nil means empty.
	fallbackRespond func(q domain.FallbackQuery) ([]string, error)
}

func (m *mockLister) ListSessions(_ context.Context, q domain.SessionQuery) ([]domain.Session, error) {
	m.primaryCalls = append(m.primaryCalls, q)
	if m.primaryErr != nil {
		return nil, m.primaryErr
	}
	if q.Start.IsZero() {
		return m.primary, nil
	}
	return m.widened, nil
}

func (m *mockLister) ListFixedSessions(_ context.Context, q domain.FallbackQuery) ([]string, error) {
	m.fallbackCalls = append(m.fallbackCalls, q)
	if m.fallbackRespond == nil {
		return nil, nil
	}
	return m.fallbackRespond(q)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(lister *mockLister) *discovery.Engine {
	return discovery.NewEngine(lister, testLogger(), observability.NewMetricsForTesting())
}

func TestEngine_Discover_PrimaryPrefersFixed(t *testing.T) {
	lister := &mockLister{primary: []domain.Session{
		{ID: "m-1", Type: "MobileSession"},
		{ID: "f-2", Type: "FixedSession"},
	}}

	ref, found, err := newEngine(lister).Discover(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "f-2", ref.ID)
	assert.Equal(t, "primary", ref.DiscoveredVia)
	assert.Len(t, lister.primaryCalls, 1)
	assert.Empty(t, lister.fallbackCalls)
}

func TestEngine_Discover_PrimaryAcceptsAnySessionWhenNoFixed(t *testing.T) {
	lister := &mockLister{primary: []domain.Session{
		{ID: "m-1", Type: "MobileSession"},
		{ID: "m-2", Type: "MobileSession"},
	}}

	ref, found, err := newEngine(lister).Discover(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "m-1", ref.ID)
}

func TestEngine_Discover_WidensTimeRange(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	discovery.SetClock(fake)
	t.Cleanup(func() { discovery.SetClock(nil) })

	bounds := &domain.GeoBounds{West: -74.5, East: -73.5, South: 40.2, North: 41.2}
	lister := &mockLister{widened: []domain.Session{{ID: "f-9", Type: "FixedSession"}}}

	ref, found, err := newEngine(lister).Discover(context.Background(), bounds)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "f-9", ref.ID)

	require.Len(t, lister.primaryCalls, 2)
	assert.True(t, lister.primaryCalls[0].Start.IsZero())
	assert.Equal(t, bounds, lister.primaryCalls[0].Bounds)

	widened := lister.primaryCalls[1]
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), widened.End)
	assert.Equal(t, widened.End.Add(-365*24*time.Hour), widened.Start)
	assert.Equal(t, bounds, widened.Bounds)
}

func TestEngine_Discover_CascadeOrderAndFirstHit(t *testing.T) {
	// Empty everywhere except deep in the cascade: dormant, 90d, AirBeam2.
	lister := &mockLister{
		fallbackRespond: func(q domain.FallbackQuery) ([]string, error) {
			if q.Kind == "dormant" && q.To.Sub(q.From) == 90*24*time.Hour && q.SensorName == "AirBeam2-PM2.5" {
				return []string{"1754"}, nil
			}
			return nil, nil
		},
	}

	ref, found, err := newEngine(lister).Discover(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1754", ref.ID)
	assert.Equal(t, "fallback:dormant:90d:AirBeam2-PM2.5", ref.DiscoveredVia)

	// active block (9) + dormant 7d (3) + dormant 30d (3) + dormant 90d AirBeam3 + hit.
	require.Len(t, lister.fallbackCalls, 17)

	var expected []string
	for _, kind := range []string{"active", "dormant"} {
		for _, days := range []int{7, 30, 90} {
			for _, sensor := range []string{"AirBeam3-PM2.5", "AirBeam2-PM2.5", "AirBeam-PM2.5"} {
				expected = append(expected, fmt.Sprintf("%s/%dd/%s", kind, days, sensor))
			}
		}
	}
	for i, call := range lister.fallbackCalls {
		days := int(call.To.Sub(call.From) / (24 * time.Hour))
		assert.Equal(t, expected[i], fmt.Sprintf("%s/%dd/%s", call.Kind, days, call.SensorName))
	}

	// First-hit short circuit: generation-1 never queried at dormant/90d.
	last := lister.fallbackCalls[len(lister.fallbackCalls)-1]
	assert.Equal(t, "AirBeam2-PM2.5", last.SensorName)
}

func TestEngine_Discover_CascadeUsesDefaultBoundsWhenNoneGiven(t *testing.T) {
	lister := &mockLister{}
	_, found, err := newEngine(lister).Discover(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, found)

	require.NotEmpty(t, lister.fallbackCalls)
	first := lister.fallbackCalls[0].Bounds
	assert.InDelta(t, -125.00001, first.West, 1e-9)
	assert.InDelta(t, -66.93457, first.East, 1e-9)
	assert.InDelta(t, 24.396308, first.South, 1e-9)
	assert.InDelta(t, 49.3457868, first.North, 1e-9)
}

func TestEngine_Discover_CascadePassesSuppliedBounds(t *testing.T) {
	bounds := &domain.GeoBounds{West: 1, East: 2, South: 3, North: 4}
	lister := &mockLister{}

	_, _, err := newEngine(lister).Discover(context.Background(), bounds)
	require.NoError(t, err)
	require.NotEmpty(t, lister.fallbackCalls)
	assert.Equal(t, *bounds, lister.fallbackCalls[0].Bounds)
	assert.Equal(t, "Particulate Matter", lister.fallbackCalls[0].MeasurementType)
	assert.Equal(t, "µg/m³", lister.fallbackCalls[0].UnitSymbol)
}

func TestEngine_Discover_ExhaustedReturnsNotFound(t *testing.T) {
	lister := &mockLister{}
	ref, found, err := newEngine(lister).Discover(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, ref)

	assert.Len(t, lister.primaryCalls, 2)   // bare + widened
	assert.Len(t, lister.fallbackCalls, 18) // full product
}

func TestEngine_Discover_TransportErrorAbortsCascade(t *testing.T) {
	boom := errors.New("gateway timeout")
	lister := &mockLister{
		fallbackRespond: func(q domain.FallbackQuery) ([]string, error) {
			if q.Kind == "active" && q.SensorName == "AirBeam2-PM2.5" {
				return nil, boom
			}
			return nil, nil
		},
	}

	_, _, err := newEngine(lister).Discover(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	// Aborted at the second combination: no further steps tried.
	assert.Len(t, lister.fallbackCalls, 2)
}

func TestEngine_Discover_PrimaryErrorAborts(t *testing.T) {
	lister := &mockLister{primaryErr: errors.New("bad gateway")}
	_, _, err := newEngine(lister).Discover(context.Background(), nil)
	require.Error(t, err)
	assert.Empty(t, lister.fallbackCalls)
}
