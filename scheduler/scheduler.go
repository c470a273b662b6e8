package scheduler

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
)

// Job is one scraping run
type Job func(ctx context.Context) error

// Scheduler repeats a job at a fixed interval. Runs never overlap: the
// interval is measured from the end of one run to the start of the next.
type Scheduler struct {
	interval time.Duration
	clock    clock.Clock
	logger   *logrus.Entry
}

// NewScheduler creates a scheduler. A nil clock means the wall clock.
func NewScheduler(interval time.Duration, clk clock.Clock, logger *logrus.Entry) *Scheduler {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Scheduler{interval: interval, clock: clk, logger: logger}
}

// Run executes job immediately and then once per interval until ctx is
// cancelled. Job failures are logged and do not stop the schedule.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	for run := 1; ; run++ {
		logger := s.logger.WithField("run", run)
		start := s.clock.Now()
		if err := job(ctx); err != nil {
			logger.WithError(err).Error("scheduled run failed")
		} else {
			logger.WithField("took", s.clock.Now().Sub(start).String()).Info("scheduled run complete")
		}

		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(s.interval):
		}
	}
}
