package splittest

import (
	"context"
	"time"

	"flagsplit/pkg/logger"
)

// Scheduler fires the split test fan-out on a fixed interval. It is only
// registered at startup when the analytics capability flag is enabled.
// There is no cross-process lock: two overlapping runs for the same feature
// resolve last-writer-wins at the reconciler.
type Scheduler struct {
	service  *Service
	interval time.Duration
}

func NewScheduler(service *Service, interval time.Duration) *Scheduler {
	return &Scheduler{
		service:  service,
		interval: interval,
	}
}

// Start blocks until ctx is cancelled, running one full update per tick.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("split_test_scheduler_started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info("split_test_scheduler_stopped")
			return
		case <-ticker.C:
			if err := s.service.RunSplitTestUpdate(ctx); err != nil {
				logger.Error("split_test_run_failed", "error", err)
			}
		}
	}
}
