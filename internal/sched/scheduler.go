package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"stock-noti-bot/internal/interfaces"
	"stock-noti-bot/internal/logger"
	"stock-noti-bot/internal/store"
)

// errBackoff is the pause after a cycle panic before trying again.
const errBackoff = 60 * time.Second

// Scheduler drives periodic monitoring cycles. Interval mode re-reads the
// user-configured interval every iteration, so /interval takes effect on
// the next wakeup without a restart. Cron mode follows the deployment
// config's cron expression in its timezone.
type Scheduler struct {
	settings *store.Settings
	engine   interfaces.Engine
}

func New(settings *store.Settings, engine interfaces.Engine) *Scheduler {
	return &Scheduler{settings: settings, engine: engine}
}

// RunInterval loops until ctx is cancelled. A panicking cycle is logged
// and retried after a backoff instead of taking the process down.
func (s *Scheduler) RunInterval(ctx context.Context) {
	logger.Info(ctx, "Interval scheduler started", "interval_minutes", s.settings.IntervalMinutes())

	for {
		wait := s.settings.Interval()
		if s.runCycle(ctx) {
			wait = errBackoff
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info(ctx, "Interval scheduler stopped")
			return
		case <-timer.C:
		}
	}
}

// runCycle executes one cycle, reporting whether it panicked.
func (s *Scheduler) runCycle(ctx context.Context) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			logger.Error(ctx, "Monitoring cycle panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()

	s.engine.Cycle(ctx)
	return false
}

// RunCron blocks on the configured cron schedule until ctx is cancelled.
func (s *Scheduler) RunCron(ctx context.Context, spec, timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("load timezone %s: %w", timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() {
		s.runCycle(ctx)
	}); err != nil {
		return fmt.Errorf("cron spec %q: %w", spec, err)
	}

	logger.Info(ctx, "Cron scheduler started", "spec", spec, "timezone", timezone)
	c.Start()

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info(ctx, "Cron scheduler stopped")
	return nil
}
