package scheduler

import (
	"context"
	"time"

	"sibyl/internal/logger"
)

// IntervalScheduler 以固定间隔触发任务。触发是尽力而为的：任务自身负责
// 并发保护（重叠触发由任务的运行锁吞掉），调度器从不排队补跑。
type IntervalScheduler struct {
	Interval       time.Duration
	RunImmediately bool

	nowFn func() time.Time
}

func NewIntervalScheduler(interval time.Duration) *IntervalScheduler {
	return &IntervalScheduler{
		Interval: interval,
		nowFn:    time.Now,
	}
}

// Start blocks, invoking task every Interval until the context is cancelled.
func (s *IntervalScheduler) Start(ctx context.Context, task func()) {
	if s == nil || task == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if s.Interval <= 0 {
		logger.Warnf("scheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	startAt := s.nowFn().UTC()
	logger.Infof("scheduler: started interval=%s run_immediately=%v at=%s",
		s.Interval, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		task()
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("scheduler: ctx done, exit")
			return
		case <-ticker.C:
			uptime := s.nowFn().UTC().Sub(startAt)
			logger.Infof("scheduler: tick | uptime=%s", uptime.Truncate(time.Second))
			task()
		}
	}
}
