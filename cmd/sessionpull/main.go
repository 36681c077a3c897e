// Command sessionpull finds an AirCasting fixed session near a place, pulls
// the freshest stream that has data, and writes the normalized measurements
// to the configured sinks.
//
// One-shot (default):
//
//	sessionpull "New York"
//
// exits 0 on success, 1 when no session or no data was found. Watch mode:
//
//	PLACES="New York,Chicago" sessionpull -watch
//
// pulls every WATCH_INTERVAL and serves health and metrics endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/emmab0118/aircasting/internal/adapter/aircasting"
	httpadapter "github.com/emmab0118/aircasting/internal/adapter/http"
	"github.com/emmab0118/aircasting/internal/adapter/nominatim"
	"github.com/emmab0118/aircasting/internal/config"
	"github.com/emmab0118/aircasting/internal/discovery"
	"github.com/emmab0118/aircasting/internal/observability"
	"github.com/emmab0118/aircasting/internal/pipeline"
	"github.com/emmab0118/aircasting/internal/scheduler"
	"github.com/emmab0118/aircasting/internal/sink"
)

func main() {
	watch := flag.Bool("watch", false, "pull periodically for the configured places")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	geocoder := nominatim.NewCachedGeocoder(
		nominatim.NewClient(cfg.NominatimBaseURL, cfg.GeocodeTimeout, metrics, logger),
		cfg.GeocodeCacheSize,
		metrics,
	)

	client := aircasting.NewClient(cfg.AircastingBaseURL, cfg.ListTimeout, cfg.FetchTimeout, logger)
	engine := discovery.NewEngine(client, logger, metrics)
	resolver := discovery.NewResolver(client, logger, metrics)

	sinks, closeSinks, err := buildSinks(cfg, logger)
	if err != nil {
		logger.Error("failed to set up sinks", "error", err)
		os.Exit(1)
	}
	defer closeSinks()

	puller := pipeline.New(geocoder, engine, resolver, sinks, cfg.SearchRadiusKm, logger, metrics)

	if *watch {
		runWatch(cfg, puller, logger, metrics)
		return
	}
	runOnce(puller, strings.Join(flag.Args(), " "), logger)
}

// runOnce performs a single pull and prints a summary.
func runOnce(puller *pipeline.Puller, place string, logger *slog.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := puller.Pull(ctx, place)
	switch {
	case err == nil:
		fmt.Printf("session %s (via %s), stream %d %s, window %s: %d records\n",
			result.Session.ID, result.Session.DiscoveredVia,
			result.Stream.StreamID, result.Stream.SensorName,
			result.Window, result.Records)
	case errors.Is(err, pipeline.ErrNoSession), errors.Is(err, pipeline.ErrNoStreamData):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	default:
		logger.Error("pull failed", "error", err)
		os.Exit(1)
	}
}

// runWatch starts the scheduler and operational HTTP server, then blocks
// until a shutdown signal.
func runWatch(cfg *config.Config, puller *pipeline.Puller, logger *slog.Logger, metrics *observability.Metrics) {
	sched := scheduler.New(puller, cfg.Places, cfg.WatchInterval, logger, metrics)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, puller, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// buildSinks assembles the configured sinks: CSV always, Kafka and Postgres
// when configured. The returned func closes whatever needs closing.
func buildSinks(cfg *config.Config, logger *slog.Logger) ([]sink.Sink, func(), error) {
	csvSink, err := sink.NewCSVSink(cfg.OutputDir, logger)
	if err != nil {
		return nil, nil, err
	}
	sinks := []sink.Sink{csvSink}
	var closers []func()

	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := sink.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		sinks = append(sinks, kafkaSink)
		closers = append(closers, func() {
			if err := kafkaSink.Close(); err != nil {
				logger.Error("kafka sink close error", "error", err)
			}
		})
		logger.Info("kafka sink enabled", "topic", cfg.KafkaTopic)
	}

	if cfg.PostgresDSN != "" {
		pgSink, err := sink.NewPostgresSink(context.Background(), cfg.PostgresDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pgSink)
		closers = append(closers, pgSink.Close)
		logger.Info("postgres sink enabled")
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
