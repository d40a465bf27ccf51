package sweep

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"alerts-service/internal/logging"
	"alerts-service/internal/pipeline"
)

// Scheduler runs the full-project evaluation sweep on a cron schedule.
type Scheduler struct {
	c        *cron.Cron
	pipeline *pipeline.Pipeline
	logger   *logging.Logger
}

func New(pl *pipeline.Pipeline, logger *logging.Logger) *Scheduler {
	return &Scheduler{c: cron.New(), pipeline: pl, logger: logger}
}

// Start registers the sweep job and launches the cron loop.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.c.AddFunc(schedule, func() {
		s.logger.Infof("Starting scheduled sweep")
		s.pipeline.SweepAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.c.Start()
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}
