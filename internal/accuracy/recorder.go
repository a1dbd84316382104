package accuracy

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sibyl/internal/ledger"
	"sibyl/internal/logger"
	"sibyl/internal/market"
	"sibyl/internal/timeframe"
)

const (
	// DefaultBatchLimit bounds expired predictions fetched per (symbol, timeframe).
	DefaultBatchLimit = 50
	// DefaultPacing spaces record_actual_price submissions.
	DefaultPacing = 500 * time.Millisecond
	// price prefetch concurrency
	defaultPrefetchLimit = 4
)

// Recorder 回填已到期预测的实际价格：扫描合约上缺少 actual_price 的过期
// 预测，从现货行情取价后逐条写回。预测的准确率评分由合约自身完成，这里
// 只负责喂入成交价。
type Recorder struct {
	client ledger.Client
	reader ledger.PredictionReader
	prices market.PriceSource

	timeframes []timeframe.Timeframe
	batchLimit int
	pacing     time.Duration

	sleep func(ctx context.Context, d time.Duration) bool
}

func NewRecorder(client ledger.Client, reader ledger.PredictionReader, prices market.PriceSource, timeframes []timeframe.Timeframe) *Recorder {
	if len(timeframes) == 0 {
		timeframes = timeframe.Defaults()
	}
	return &Recorder{
		client:     client,
		reader:     reader,
		prices:     prices,
		timeframes: timeframes,
		batchLimit: DefaultBatchLimit,
		pacing:     DefaultPacing,
		sleep:      sleepCtx,
	}
}

// WithBatchLimit bounds how many expired predictions are fetched per pair.
func (r *Recorder) WithBatchLimit(limit int) *Recorder {
	if limit > 0 {
		r.batchLimit = limit
	}
	return r
}

// WithPacing overrides the pause between record_actual_price submissions.
func (r *Recorder) WithPacing(pacing time.Duration) *Recorder {
	if pacing >= 0 {
		r.pacing = pacing
	}
	return r
}

// Record settles expired predictions for the given symbols and returns how
// many actual prices were written and how many attempts failed. Failures are
// per prediction; the scan always covers every symbol.
func (r *Recorder) Record(ctx context.Context, symbols []string) (recorded, failed int) {
	pending := r.collectExpired(ctx, symbols)
	if len(pending) == 0 {
		return 0, 0
	}
	logger.Infof("accuracy: %d expired predictions awaiting actual price", len(pending))

	prices := r.prefetchPrices(ctx, pending)

	for i, pred := range pending {
		if ctx.Err() != nil {
			return recorded, failed
		}
		price, ok := prices[pred.Symbol]
		if !ok {
			failed++
			continue
		}
		quoted := price.StringFixed(2) + " USD"
		if _, err := r.client.Submit(ctx, ledger.FnRecordActualPrice, []any{pred.ID, quoted}); err != nil {
			failed++
			logger.Errorf("accuracy: record %s (%s %s) failed: %v", pred.ID, pred.Symbol, pred.Timeframe, err)
		} else {
			recorded++
			logger.Infof("accuracy: recorded %s for %s (%s %s)", quoted, pred.ID, pred.Symbol, pred.Timeframe)
		}
		if i < len(pending)-1 && !r.sleep(ctx, r.pacing) {
			return recorded, failed
		}
	}
	return recorded, failed
}

// collectExpired scans every (symbol, timeframe) pair for expired predictions
// still lacking an actual price. Read failures are logged and skipped so one
// flaky pair cannot block the rest of the backfill.
func (r *Recorder) collectExpired(ctx context.Context, symbols []string) []ledger.PredictionSummary {
	var pending []ledger.PredictionSummary
	for _, sym := range symbols {
		for _, tf := range r.timeframes {
			if ctx.Err() != nil {
				return pending
			}
			expired, err := r.reader.ExpiredPredictions(ctx, sym, tf.Key, r.batchLimit)
			if err != nil {
				logger.Warnf("accuracy: listing expired %s %s failed: %v", sym, tf, err)
				continue
			}
			for _, pred := range expired {
				if pred.ActualPrice != "" {
					continue
				}
				pending = append(pending, pred)
			}
		}
	}
	return pending
}

// prefetchPrices resolves one spot price per distinct symbol, a few symbols
// at a time. Symbols whose price lookup fails are absent from the result.
func (r *Recorder) prefetchPrices(ctx context.Context, pending []ledger.PredictionSummary) map[string]decimal.Decimal {
	distinct := make(map[string]struct{})
	for _, pred := range pending {
		distinct[pred.Symbol] = struct{}{}
	}

	var mu sync.Mutex
	prices := make(map[string]decimal.Decimal, len(distinct))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultPrefetchLimit)
	for sym := range distinct {
		sym := sym
		g.Go(func() error {
			price, err := r.prices.SpotPrice(gctx, sym)
			if err != nil {
				logger.Warnf("accuracy: spot price for %s unavailable: %v", sym, err)
				return nil
			}
			mu.Lock()
			prices[sym] = price
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return prices
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
