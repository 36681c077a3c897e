// Package scheduler drives periodic pulls in watch mode.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/emmab0118/aircasting/internal/observability"
	"github.com/emmab0118/aircasting/internal/pipeline"
	"github.com/go-co-op/gocron"
)

// Scheduler runs the puller for each configured place on a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	puller    *pipeline.Puller
	places    []string
	interval  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Scheduler.
func New(puller *pipeline.Puller, places []string, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		puller:    puller,
		places:    places,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start schedules the pull job, runs it once immediately, and starts the
// scheduler in the background.
func (s *Scheduler) Start() error {
	if len(s.places) == 0 {
		return errors.New("watch mode needs at least one place")
	}

	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.metrics.WatchRunning.Set(1)
	s.logger.Info("watch started", "places", s.places, "interval", s.interval.String())
	return nil
}

// Stop cancels future jobs. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.metrics.WatchRunning.Set(0)
}

func (s *Scheduler) runOnce() {
	for _, place := range s.places {
		// Each pull gets its own deadline so one slow cascade cannot eat
		// the whole interval for the remaining places.
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		_, err := s.puller.Pull(ctx, place)
		cancel()

		switch {
		case err == nil:
		case errors.Is(err, pipeline.ErrNoSession), errors.Is(err, pipeline.ErrNoStreamData):
			s.logger.Warn("nothing found", "place", place, "error", err)
		default:
			s.logger.Error("pull failed", "place", place, "error", err)
		}
	}
}
