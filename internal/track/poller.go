package track

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sibyl/internal/ledger"
	"sibyl/internal/logger"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultMaxAttempts  = 40
)

// Poller drives submitted transactions through the settlement state machine.
// Each tracked id gets its own goroutine with an explicit bounded loop; the
// attempt counter is loop state and "attempt N" means the Nth status query
// sent. Poll loops never block each other.
type Poller struct {
	client      ledger.Client
	store       *Store
	interval    time.Duration
	maxAttempts int

	wg sync.WaitGroup

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) bool
}

func NewPoller(client ledger.Client, store *Store, interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Poller{
		client:      client,
		store:       store,
		interval:    interval,
		maxAttempts: maxAttempts,
		sleep:       sleepCtx,
	}
}

// Track starts polling the given transaction id. Fire and forget: the caller
// is not blocked on settlement.
func (p *Poller) Track(ctx context.Context, id string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.poll(ctx, id)
	}()
}

// Wait blocks until all in-flight poll loops are done. Used on shutdown and
// in tests; runs never need it because pollers self-terminate.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) poll(ctx context.Context, id string) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		receipt, err := p.client.QueryStatus(ctx, id)
		if err != nil {
			// Not-found and transport errors are expected while the ledger is
			// still validating. Keep polling.
			logger.Debugf("poll %s attempt %d/%d: %v", id, attempt, p.maxAttempts, err)
		} else if receipt.Rejected() {
			reason := fmt.Sprintf("ledger settled with %s", receipt.Status)
			p.store.Transition(id, StatusFailed, reason)
			return
		} else if receipt.Accepted() {
			p.store.Transition(id, StatusAccepted, "")
			if receipt.Finalized() {
				p.store.Transition(id, StatusFinalized, "")
				return
			}
		}

		if attempt == p.maxAttempts {
			break
		}
		if !p.sleep(ctx, p.interval) {
			logger.Debugf("poll %s: context canceled after attempt %d", id, attempt)
			return
		}
	}

	// Budget exhausted. If the transaction was at least accepted we leave it
	// there: settled but without observed finality is not a failure.
	if rec, ok := p.store.Get(id); ok && rec.Status == StatusAccepted {
		logger.Infof("poll %s: accepted but finality not observed within %d attempts", id, p.maxAttempts)
		return
	}
	msg := fmt.Sprintf("still unsettled after %d status checks over %s; the transaction may confirm later",
		p.maxAttempts, time.Duration(p.maxAttempts)*p.interval)
	p.store.Transition(id, StatusPending, msg)
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
