package notifier

import (
	"context"
	"fmt"

	"sibyl/internal/logger"
	"sibyl/internal/track"
)

// AttachAlerts subscribes the notifier to the tracking bus and pushes a
// message whenever a transaction ends up FAILED or exhausts its poll budget
// (PENDING). Finalized transactions stay quiet; they are summarized in the
// per-run digest instead.
func AttachAlerts(bus *track.Bus, n TextNotifier) *track.Subscription {
	return bus.Subscribe(func(rec track.Record) {
		var text string
		switch rec.Status {
		case track.StatusFailed:
			text = fmt.Sprintf("Update FAILED: %s %s\ntx %s\n%s",
				rec.Symbol, rec.Timeframe, rec.ID, rec.Err)
		case track.StatusPending:
			text = fmt.Sprintf("Update unconfirmed: %s %s\ntx %s\n%s",
				rec.Symbol, rec.Timeframe, rec.ID, rec.Err)
		default:
			return
		}
		if err := n.Send(context.Background(), text); err != nil {
			logger.Warnf("alert for %s not delivered: %v", rec.ID, err)
		}
	})
}
