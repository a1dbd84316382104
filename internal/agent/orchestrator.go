package agent

import (
	"context"
	"time"

	"sibyl/internal/logger"
	"sibyl/internal/market"
	"sibyl/internal/pkg/symbol"
	"sibyl/internal/submit"
	"sibyl/internal/timeframe"
)

const (
	// DefaultTimeframePause spaces submissions within one symbol.
	DefaultTimeframePause = 1 * time.Second
	// DefaultSymbolPause spaces work across symbols.
	DefaultSymbolPause = 3 * time.Second
)

// Orchestrator 负责一轮更新的编排：过滤白名单、为每个 symbol 构建一次
// 上下文、按 timeframe 顺序提交。Symbol 之间互不影响，单个 symbol 的失败
// 只记入摘要。
type Orchestrator struct {
	engine  *submit.Engine
	builder market.ContextBuilder
	expiry  *ExpiryChecker

	timeframes []timeframe.Timeframe
	whitelist  []string

	timeframePause time.Duration
	symbolPause    time.Duration

	sleep func(ctx context.Context, d time.Duration) bool
}

func NewOrchestrator(engine *submit.Engine, builder market.ContextBuilder, expiry *ExpiryChecker, timeframes []timeframe.Timeframe, whitelist []string) *Orchestrator {
	if len(timeframes) == 0 {
		timeframes = timeframe.Defaults()
	}
	return &Orchestrator{
		engine:         engine,
		builder:        builder,
		expiry:         expiry,
		timeframes:     timeframes,
		whitelist:      symbol.NormalizeList(whitelist),
		timeframePause: DefaultTimeframePause,
		symbolPause:    DefaultSymbolPause,
		sleep:          sleepCtx,
	}
}

// WithPacing overrides the pauses between timeframes and between symbols.
func (o *Orchestrator) WithPacing(timeframePause, symbolPause time.Duration) *Orchestrator {
	if timeframePause >= 0 {
		o.timeframePause = timeframePause
	}
	if symbolPause >= 0 {
		o.symbolPause = symbolPause
	}
	return o
}

// Run walks the registry (intersected with the whitelist, registry order
// preserved) and submits one update per live timeframe. Counters land in
// summary; the method itself only errors on context cancellation.
func (o *Orchestrator) Run(ctx context.Context, registry []string, summary *RunSummary) error {
	targets := symbol.Filter(registry, o.whitelist)
	if len(targets) == 0 {
		logger.Warnf("run %s: no symbols to update (registry %d, whitelist %d)",
			summary.RunID, len(registry), len(o.whitelist))
		return nil
	}
	logger.Infof("run %s: updating %d symbols across %d timeframes",
		summary.RunID, len(targets), len(o.timeframes))

	for i, sym := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.SymbolsAttempted++
		o.runSymbol(ctx, sym, summary)
		if i < len(targets)-1 && !o.sleep(ctx, o.symbolPause) {
			return ctx.Err()
		}
	}
	return nil
}

// runSymbol builds one context snapshot and reuses it for every timeframe of
// the symbol. A context build failure fails the whole symbol; a single
// submission failure only fails that (symbol, timeframe) pair.
func (o *Orchestrator) runSymbol(ctx context.Context, sym string, summary *RunSummary) {
	snapshot, err := o.builder.BuildContext(ctx, sym)
	if err != nil {
		summary.SymbolsFailed++
		summary.UpdatesFailed += len(o.timeframes)
		summary.UpdatesAttempted += len(o.timeframes)
		summary.recordError("%s: context build failed: %v", sym, err)
		logger.Errorf("run %s: context for %s failed: %v", summary.RunID, sym, err)
		return
	}

	failed := false
	for i, tf := range o.timeframes {
		if ctx.Err() != nil {
			return
		}
		if o.expiry != nil && !o.expiry.NeedsUpdate(ctx, sym, tf) {
			summary.UpdatesSkipped++
			continue
		}
		summary.UpdatesAttempted++
		id, err := o.engine.Submit(ctx, submit.Job{Symbol: sym, Timeframe: tf, Context: snapshot})
		if err != nil {
			failed = true
			summary.UpdatesFailed++
			summary.recordError("%s %s: %v", sym, tf, err)
			logger.Errorf("run %s: submit %s %s failed: %v", summary.RunID, sym, tf, err)
		} else {
			logger.Infof("run %s: submitted %s %s as %s", summary.RunID, sym, tf, id)
		}
		if i < len(o.timeframes)-1 && !o.sleep(ctx, o.timeframePause) {
			return
		}
	}
	if failed {
		summary.SymbolsFailed++
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
