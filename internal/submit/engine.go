package submit

import (
	"context"
	"fmt"
	"time"

	"sibyl/internal/ledger"
	"sibyl/internal/logger"
	"sibyl/internal/pkg/symbol"
	"sibyl/internal/timeframe"
	"sibyl/internal/track"
)

const (
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 5 * time.Second
)

// Job 是一次提交单元：一个 (symbol, timeframe) 对加上该 symbol 的行情上下文快照。
// Created per run by the orchestrator and consumed exactly once; retry state
// lives inside Submit, not on the job.
type Job struct {
	Symbol    string
	Timeframe timeframe.Timeframe
	Context   string
}

// Tracker hands successfully submitted ids to the status poller.
type Tracker interface {
	Track(ctx context.Context, id string)
}

// Engine submits one job to the ledger with retry and backoff. This is the
// single canonical retry policy of the service: transient submission failures
// are retried up to MaxRetries with a doubling backoff (base, 2x, 4x, ...);
// deterministic contract rejections short-circuit immediately.
type Engine struct {
	client  ledger.Client
	store   *track.Store
	tracker Tracker

	maxRetries  int
	backoffBase time.Duration

	sleep func(ctx context.Context, d time.Duration) bool
}

func NewEngine(client ledger.Client, store *track.Store, tracker Tracker, maxRetries int, backoffBase time.Duration) *Engine {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}
	return &Engine{
		client:      client,
		store:       store,
		tracker:     tracker,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		sleep:       sleepCtx,
	}
}

// Submit validates the job, pushes it to the ledger and registers the
// resulting transaction for tracking. Exactly one record is created per
// successful submission; failed attempts never create one. The engine does
// not wait for settlement.
func (e *Engine) Submit(ctx context.Context, job Job) (string, error) {
	job.Symbol = symbol.Normalize(job.Symbol)
	if job.Symbol == "" {
		return "", fmt.Errorf("submit: symbol cannot be empty")
	}
	if job.Timeframe.Key == "" {
		return "", fmt.Errorf("submit: timeframe is required")
	}
	payload, err := NormalizeContext(job.Context)
	if err != nil {
		return "", fmt.Errorf("submit %s %s: %w", job.Symbol, job.Timeframe, err)
	}
	WarnOnDegradedContext(job.Symbol, payload)

	args := []any{job.Symbol, payload, job.Timeframe.Key}

	var lastErr error
	// Attempt 0 is the initial call; each of the maxRetries retries is
	// preceded by one backoff sleep. No sleep after the final failure.
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := e.backoffBase << (attempt - 1)
			logger.Infof("submit %s %s: retry %d/%d in %s", job.Symbol, job.Timeframe, attempt, e.maxRetries, delay)
			if !e.sleep(ctx, delay) {
				return "", fmt.Errorf("submit %s %s: canceled: %w", job.Symbol, job.Timeframe, ctx.Err())
			}
		}

		txID, err := e.client.Submit(ctx, ledger.FnRequestUpdate, args)
		if err == nil {
			rec := track.Record{ID: txID, Symbol: job.Symbol, Timeframe: job.Timeframe.Key}
			if insertErr := e.store.Insert(rec); insertErr != nil {
				// The ledger accepted the call; a duplicate id here means we
				// are already tracking it. Either way the submission stands.
				logger.Warnf("submit %s %s: %v", job.Symbol, job.Timeframe, insertErr)
				return txID, nil
			}
			if e.tracker != nil {
				e.tracker.Track(ctx, txID)
			}
			logger.Infof("submit %s %s: tx %s", job.Symbol, job.Timeframe, txID)
			return txID, nil
		}

		if ledger.IsTerminal(err) {
			return "", fmt.Errorf("submit %s %s: %w", job.Symbol, job.Timeframe, err)
		}
		lastErr = err
		logger.Warnf("submit %s %s attempt %d failed: %v", job.Symbol, job.Timeframe, attempt+1, err)
	}

	return "", fmt.Errorf("submit %s %s: retries exhausted: %w", job.Symbol, job.Timeframe, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
