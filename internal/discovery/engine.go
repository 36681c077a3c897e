// Package discovery finds a fixed session with usable data: a two-tier
// session search across the provider's current and legacy endpoints, and a
// stream resolver that probes escalating lookback windows until one returns
// measurements.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emmab0118/aircasting/internal/domain"
	"github.com/emmab0118/aircasting/internal/observability"
)

// Cascade dimensions, outer to inner. Ordering is tuned so the common case
// (a recently active, current-generation sensor) is found in few requests.
var (
	fallbackKinds   = []string{"active", "dormant"}
	fallbackWindows = []int{7, 30, 90} // days
	fallbackSensors = []string{"AirBeam3-PM2.5", "AirBeam2-PM2.5", "AirBeam-PM2.5"}
)

const (
	fallbackMeasurementType = "Particulate Matter"
	fallbackUnitSymbol      = "µg/m³"

	// widenedRange is the time filter added when the primary query with
	// bounds alone comes back empty.
	widenedRange = 365 * 24 * time.Hour
)

// defaultBounds covers the continental US, used by the cascade when no
// bounds were supplied.
var defaultBounds = domain.GeoBounds{
	West:  -125.00001,
	East:  -66.93457,
	South: 24.396308,
	North: 49.3457868,
}

// SessionLister is the provider surface the engine needs.
type SessionLister interface {
	ListSessions(ctx context.Context, q domain.SessionQuery) ([]domain.Session, error)
	ListFixedSessions(ctx context.Context, q domain.FallbackQuery) ([]string, error)
}

// Engine runs the two-tier session discovery.
type Engine struct {
	sessions SessionLister
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewEngine creates a discovery engine.
func NewEngine(sessions SessionLister, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{sessions: sessions, logger: logger, metrics: metrics}
}

// Discover returns the first session found by the primary query or, failing
// that, the fallback cascade. The bool is false when every strategy came back
// empty. Transport errors abort the run immediately rather than advancing to
// the next combination.
func (e *Engine) Discover(ctx context.Context, bounds *domain.GeoBounds) (domain.SessionRef, bool, error) {
	ref, found, err := e.discoverPrimary(ctx, bounds)
	if err != nil {
		return domain.SessionRef{}, false, err
	}
	if found {
		return ref, true, nil
	}
	return e.discoverFallback(ctx, bounds)
}

// discoverPrimary queries /api/v3/sessions, first with bounds alone, then
// widened with an explicit trailing-year range. A fixed session is preferred;
// any listed session is accepted as a best effort.
func (e *Engine) discoverPrimary(ctx context.Context, bounds *domain.GeoBounds) (domain.SessionRef, bool, error) {
	sessions, err := e.sessions.ListSessions(ctx, domain.SessionQuery{Bounds: bounds})
	if err != nil {
		e.metrics.DiscoveryRequests.WithLabelValues("primary", "error").Inc()
		return domain.SessionRef{}, false, fmt.Errorf("primary session query: %w", err)
	}

	if len(sessions) == 0 {
		now := clock.Now().UTC()
		sessions, err = e.sessions.ListSessions(ctx, domain.SessionQuery{
			Start:  now.Add(-widenedRange),
			End:    now,
			Bounds: bounds,
		})
		if err != nil {
			e.metrics.DiscoveryRequests.WithLabelValues("primary", "error").Inc()
			return domain.SessionRef{}, false, fmt.Errorf("widened primary session query: %w", err)
		}
	}

	if len(sessions) == 0 {
		e.metrics.DiscoveryRequests.WithLabelValues("primary", "empty").Inc()
		return domain.SessionRef{}, false, nil
	}

	picked := sessions[0]
	for _, s := range sessions {
		if s.Type == domain.SessionTypeFixed {
			picked = s
			break
		}
	}

	e.metrics.DiscoveryRequests.WithLabelValues("primary", "hit").Inc()
	e.logger.Info("session discovered", "session_id", picked.ID, "type", picked.Type, "via", "primary")
	return domain.SessionRef{ID: picked.ID, DiscoveredVia: "primary"}, true, nil
}

// discoverFallback walks the kind × window × sensor product in fixed priority
// order, stopping at the first combination that returns sessions.
func (e *Engine) discoverFallback(ctx context.Context, bounds *domain.GeoBounds) (domain.SessionRef, bool, error) {
	searchBounds := defaultBounds
	if bounds != nil {
		searchBounds = *bounds
	}

	for _, kind := range fallbackKinds {
		for _, days := range fallbackWindows {
			for _, sensor := range fallbackSensors {
				now := clock.Now().UTC()
				ids, err := e.sessions.ListFixedSessions(ctx, domain.FallbackQuery{
					Kind:            kind,
					From:            now.Add(-time.Duration(days) * 24 * time.Hour),
					To:              now,
					Bounds:          searchBounds,
					SensorName:      sensor,
					MeasurementType: fallbackMeasurementType,
					UnitSymbol:      fallbackUnitSymbol,
				})
				if err != nil {
					e.metrics.DiscoveryRequests.WithLabelValues("fallback", "error").Inc()
					return domain.SessionRef{}, false, fmt.Errorf("fallback query %s/%dd/%s: %w", kind, days, sensor, err)
				}
				if len(ids) == 0 {
					e.metrics.DiscoveryRequests.WithLabelValues("fallback", "empty").Inc()
					continue
				}

				via := fmt.Sprintf("fallback:%s:%dd:%s", kind, days, sensor)
				e.metrics.DiscoveryRequests.WithLabelValues("fallback", "hit").Inc()
				e.logger.Info("session discovered", "session_id", ids[0], "via", via)
				return domain.SessionRef{ID: ids[0], DiscoveredVia: via}, true, nil
			}
		}
	}

	return domain.SessionRef{}, false, nil
}
