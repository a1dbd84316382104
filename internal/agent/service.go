package agent

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"sibyl/internal/logger"
)

// AccuracyRecorder settles expired predictions after the submission phase.
type AccuracyRecorder interface {
	Record(ctx context.Context, symbols []string) (recorded, failed int)
}

// RunLogger persists finished run summaries for audit.
type RunLogger interface {
	AppendRun(ctx context.Context, summary RunSummary) error
}

// Notifier pushes the per-run digest to an external channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Service 将健康检查、编排器、准确率回填和审计串成一次完整的运行。
// 同一时间只允许一次运行：调度器触发时若上一轮仍在进行则直接跳过。
type Service struct {
	health   *HealthChecker
	orch     *Orchestrator
	recorder AccuracyRecorder
	runlog   RunLogger
	notifier Notifier

	// runMu is the run lock. TryLock on entry; an overlapping trigger is a
	// logged no-op, never a queued run.
	runMu sync.Mutex

	mu          sync.RWMutex
	lastSummary *RunSummary
	lastHealth  HealthStatus

	nowFn func() time.Time
}

func NewService(health *HealthChecker, orch *Orchestrator) *Service {
	return &Service{health: health, orch: orch, nowFn: time.Now}
}

func (s *Service) WithAccuracyRecorder(r AccuracyRecorder) *Service { s.recorder = r; return s }
func (s *Service) WithRunLogger(l RunLogger) *Service               { s.runlog = l; return s }
func (s *Service) WithNotifier(n Notifier) *Service                 { s.notifier = n; return s }

// RunOnce executes a single update cycle. Safe to call from the scheduler and
// from an operator endpoint concurrently; at most one cycle runs at a time.
func (s *Service) RunOnce(ctx context.Context) {
	if !s.runMu.TryLock() {
		logger.Warnf("previous run still in progress, skipping this trigger")
		return
	}
	defer s.runMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("run panicked: %v\n%s", r, debug.Stack())
		}
	}()

	summary := newRunSummary(s.nowFn())
	logger.Infof("run %s starting", summary.RunID)

	health := s.health.Check(ctx)
	s.mu.Lock()
	s.lastHealth = health
	s.mu.Unlock()

	if !health.Healthy {
		summary.recordError("health gate: %s", health.Reason)
		logger.Errorf("run %s aborted: %s", summary.RunID, health.Reason)
		s.finish(ctx, summary)
		return
	}

	if err := s.orch.Run(ctx, health.Symbols, summary); err != nil {
		summary.recordError("run interrupted: %v", err)
		logger.Warnf("run %s interrupted: %v", summary.RunID, err)
		s.finish(ctx, summary)
		return
	}

	if s.recorder != nil {
		recorded, failed := s.recorder.Record(ctx, health.Symbols)
		if recorded > 0 || failed > 0 {
			logger.Infof("run %s: accuracy backfill recorded %d, failed %d",
				summary.RunID, recorded, failed)
		}
	}

	s.finish(ctx, summary)
}

func (s *Service) finish(ctx context.Context, summary *RunSummary) {
	summary.FinishedAt = s.nowFn()
	logger.Infof("%s", summary.LogBlock())

	s.mu.Lock()
	s.lastSummary = summary
	s.mu.Unlock()

	if s.runlog != nil {
		if err := s.runlog.AppendRun(ctx, *summary); err != nil {
			logger.Errorf("run %s: persisting summary failed: %v", summary.RunID, err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, summary.Digest()); err != nil {
			logger.Warnf("run %s: digest notification failed: %v", summary.RunID, err)
		}
	}
}

// LastSummary returns a copy of the most recent finished run, if any.
func (s *Service) LastSummary() (RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSummary == nil {
		return RunSummary{}, false
	}
	return *s.lastSummary, true
}

// Health returns the readiness status observed by the most recent run.
func (s *Service) Health() HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastHealth
}
