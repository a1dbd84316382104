package notifier

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"sibyl/internal/track"
)

type memoryNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (m *memoryNotifier) Send(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return nil
}

func TestAttachAlertsOnlyFiresOnBadOutcomes(t *testing.T) {
	bus := track.NewBus()
	sink := &memoryNotifier{}
	sub := AttachAlerts(bus, sink)
	defer sub.Cancel()

	bus.Publish(track.Record{ID: "0x1", Symbol: "BTC", Timeframe: "1h", Status: track.StatusSubmitted})
	bus.Publish(track.Record{ID: "0x1", Symbol: "BTC", Timeframe: "1h", Status: track.StatusAccepted})
	bus.Publish(track.Record{ID: "0x1", Symbol: "BTC", Timeframe: "1h", Status: track.StatusFinalized})
	assert.Empty(t, sink.sent, "healthy settlements stay quiet")

	bus.Publish(track.Record{ID: "0x2", Symbol: "ETH", Timeframe: "4h", Status: track.StatusFailed, Err: "rejected"})
	bus.Publish(track.Record{ID: "0x3", Symbol: "SOL", Timeframe: "1h", Status: track.StatusPending, Err: "unsettled"})

	assert.Len(t, sink.sent, 2)
	assert.Contains(t, sink.sent[0], "FAILED")
	assert.Contains(t, sink.sent[0], "ETH")
	assert.Contains(t, sink.sent[1], "unconfirmed")
}
