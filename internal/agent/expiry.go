package agent

import (
	"context"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"sibyl/internal/ledger"
	"sibyl/internal/logger"
	"sibyl/internal/timeframe"
)

// ExpiryChecker decides whether a (symbol, timeframe) pair needs a fresh
// prediction. A pair is skipped when the newest on-ledger prediction is still
// inside its horizon. The check fails open: any read or parse problem yields
// "needs update" so a flaky ledger can delay but never silently suppress
// updates.
type ExpiryChecker struct {
	reader ledger.PredictionReader
	nowFn  func() time.Time
}

func NewExpiryChecker(reader ledger.PredictionReader) *ExpiryChecker {
	return &ExpiryChecker{reader: reader, nowFn: time.Now}
}

// NeedsUpdate reports whether sym/tf has no live prediction on the ledger.
func (e *ExpiryChecker) NeedsUpdate(ctx context.Context, sym string, tf timeframe.Timeframe) bool {
	pred, ok, err := e.reader.LatestPrediction(ctx, sym, tf.Key)
	if err != nil {
		logger.Warnf("expiry check %s %s failed, assuming update needed: %v", sym, tf, err)
		return true
	}
	if !ok {
		return true
	}
	generatedAt, ok := parseGeneratedAt(pred.RawContext)
	if !ok {
		logger.Warnf("prediction %s has no parseable generated_at, assuming update needed", pred.ID)
		return true
	}
	expiresAt := tf.ExpiresAt(generatedAt)
	if e.nowFn().Before(expiresAt) {
		logger.Debugf("%s %s still live until %s, skipping", sym, tf, expiresAt.Format(time.RFC3339))
		return false
	}
	return true
}

// parseGeneratedAt extracts the context snapshot timestamp. The aggregation
// service writes RFC3339; older snapshots used a plain "2006-01-02 15:04:05"
// UTC stamp, so both are accepted.
func parseGeneratedAt(rawContext string) (time.Time, bool) {
	raw := strings.TrimSpace(gjson.Get(rawContext, "generated_at").String())
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
