package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/emmab0118/aircasting/internal/domain"
	"github.com/emmab0118/aircasting/internal/observability"
)

// probeWindows are the escalating lookbacks tried per stream, freshest first.
var probeWindows = []time.Duration{
	24 * time.Hour,
	7 * 24 * time.Hour,
	30 * 24 * time.Hour,
	90 * 24 * time.Hour,
	180 * 24 * time.Hour,
	365 * 24 * time.Hour,
}

// pm25Marker ranks particulate-matter streams ahead of other channels.
const pm25Marker = "PM2.5"

// StreamSource lists streams and fetches measurements.
type StreamSource interface {
	ListStreams(ctx context.Context, sessionID string) ([]domain.StreamDescriptor, error)
	Measurements(ctx context.Context, streamID int64, start, end time.Time) ([]domain.RawMeasurement, error)
}

// StreamResult is a stream that returned data, the window that produced it,
// and the raw measurements from that probe.
type StreamResult struct {
	Stream       domain.StreamDescriptor
	Window       time.Duration
	Measurements []domain.RawMeasurement
}

// Resolver picks the first stream of a session that has recent data.
type Resolver struct {
	source  StreamSource
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewResolver creates a stream resolver.
func NewResolver(source StreamSource, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{source: source, logger: logger, metrics: metrics}
}

// Resolve lists the session's streams, PM2.5 channels first, and probes each
// at escalating lookback windows. The first non-empty probe wins: no larger
// windows for that stream, no further streams. The bool is false when every
// stream is empty across every window.
func (r *Resolver) Resolve(ctx context.Context, sessionID string) (StreamResult, bool, error) {
	streams, err := r.source.ListStreams(ctx, sessionID)
	if err != nil {
		return StreamResult{}, false, fmt.Errorf("resolve streams: %w", err)
	}
	if len(streams) == 0 {
		return StreamResult{}, false, nil
	}

	rankStreams(streams)

	for _, stream := range streams {
		for _, window := range probeWindows {
			end := clock.Now().UTC()
			raws, err := r.source.Measurements(ctx, stream.StreamID, end.Add(-window), end)
			if err != nil {
				r.metrics.StreamProbes.WithLabelValues("error").Inc()
				return StreamResult{}, false, fmt.Errorf("probe stream %d at %s: %w", stream.StreamID, window, err)
			}

			r.logger.Debug("probed stream",
				"stream_id", stream.StreamID,
				"sensor", stream.SensorName,
				"window", window.String(),
				"points", len(raws),
			)

			if len(raws) == 0 {
				r.metrics.StreamProbes.WithLabelValues("empty").Inc()
				continue
			}

			r.metrics.StreamProbes.WithLabelValues("hit").Inc()
			r.logger.Info("stream resolved",
				"stream_id", stream.StreamID,
				"sensor", stream.SensorName,
				"window", window.String(),
				"points", len(raws),
			)
			return StreamResult{Stream: stream, Window: window, Measurements: raws}, true, nil
		}
	}

	return StreamResult{}, false, nil
}

// rankStreams sorts PM2.5 streams first, then lexically by sensor name.
func rankStreams(streams []domain.StreamDescriptor) {
	sort.SliceStable(streams, func(i, j int) bool {
		pi := strings.Contains(streams[i].SensorName, pm25Marker)
		pj := strings.Contains(streams[j].SensorName, pm25Marker)
		if pi != pj {
			return pi
		}
		return streams[i].SensorName < streams[j].SensorName
	})
}
