package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// scheduler runs the periodic jobs. A panicking job is logged and recovered,
// and a job still running when its next tick fires is skipped.
type scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

func newScheduler(loc *time.Location, log *zap.Logger) *scheduler {
	log = log.Named("cron")
	cronLog := cron.PrintfLogger(zap.NewStdLog(log))
	return &scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		log: log,
	}
}

func (s *scheduler) add(spec, name string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.log.Debug("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

func (s *scheduler) start() {
	s.cron.Start()
}

// stop halts the schedule and waits for running jobs until ctx is done.
func (s *scheduler) stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("jobs still running at shutdown")
	}
}
