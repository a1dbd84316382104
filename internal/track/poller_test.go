package track

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sibyl/internal/ledger"
)

// scriptedLedger returns canned receipts per status query, in order. The last
// entry repeats once the script is exhausted.
type scriptedLedger struct {
	mu       sync.Mutex
	script   []queryResult
	queries  int
	lastSeen string
}

type queryResult struct {
	receipt ledger.Receipt
	err     error
}

func (s *scriptedLedger) Submit(context.Context, string, []any) (string, error) {
	panic("not used")
}

func (s *scriptedLedger) ListSymbols(context.Context) ([]string, error) {
	panic("not used")
}

func (s *scriptedLedger) QueryStatus(_ context.Context, id string) (ledger.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = id
	idx := s.queries
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.queries++
	res := s.script[idx]
	return res.receipt, res.err
}

func (s *scriptedLedger) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

func newTestPoller(client ledger.Client, store *Store, maxAttempts int) *Poller {
	p := NewPoller(client, store, time.Millisecond, maxAttempts)
	p.sleep = func(context.Context, time.Duration) bool { return true }
	return p
}

func collectStatuses(bus *Bus) *[]Status {
	var mu sync.Mutex
	statuses := &[]Status{}
	bus.Subscribe(func(r Record) {
		mu.Lock()
		*statuses = append(*statuses, r.Status)
		mu.Unlock()
	})
	return statuses
}

func TestPollerFinalizes(t *testing.T) {
	client := &scriptedLedger{script: []queryResult{
		{err: ledger.ErrNotFound},
		{receipt: ledger.Receipt{Settled: true, Status: ledger.StatusAccepted}},
		{receipt: ledger.Receipt{Settled: true, Status: ledger.StatusFinalized}},
	}}
	bus := NewBus()
	statuses := collectStatuses(bus)
	store := NewStore(bus)
	require.NoError(t, store.Insert(Record{ID: "tx1", Symbol: "BTC", Timeframe: "1h"}))

	p := newTestPoller(client, store, 10)
	p.Track(context.Background(), "tx1")
	p.Wait()

	rec, _ := store.Get("tx1")
	assert.Equal(t, StatusFinalized, rec.Status)
	assert.Equal(t, 3, client.queryCount(), "stops polling once finalized")
	assert.Equal(t, []Status{StatusSubmitted, StatusAccepted, StatusFinalized}, *statuses)
}

func TestPollerImmediateFinalitySkipsNothing(t *testing.T) {
	// First observable receipt is already FINALIZED: both transitions are
	// still published, in order, so no edge is skipped.
	client := &scriptedLedger{script: []queryResult{
		{receipt: ledger.Receipt{Settled: true, Status: ledger.StatusFinalized}},
	}}
	bus := NewBus()
	statuses := collectStatuses(bus)
	store := NewStore(bus)
	require.NoError(t, store.Insert(Record{ID: "tx1", Symbol: "BTC", Timeframe: "1h"}))

	p := newTestPoller(client, store, 10)
	p.Track(context.Background(), "tx1")
	p.Wait()

	assert.Equal(t, []Status{StatusSubmitted, StatusAccepted, StatusFinalized}, *statuses)
}

func TestPollerExhaustionGoesPending(t *testing.T) {
	client := &scriptedLedger{script: []queryResult{{err: ledger.ErrNotFound}}}
	bus := NewBus()
	statuses := collectStatuses(bus)
	store := NewStore(bus)
	require.NoError(t, store.Insert(Record{ID: "tx1", Symbol: "BTC", Timeframe: "1h"}))

	p := newTestPoller(client, store, 40)
	p.Track(context.Background(), "tx1")
	p.Wait()

	rec, _ := store.Get("tx1")
	assert.Equal(t, StatusPending, rec.Status)
	assert.NotEmpty(t, rec.Err, "pending carries a human-readable reason")
	assert.Equal(t, 40, client.queryCount(), "pending only after the 40th query")
	assert.Equal(t, []Status{StatusSubmitted, StatusPending}, *statuses,
		"exactly one publish for the pending transition")
}

func TestPollerRejectionFails(t *testing.T) {
	client := &scriptedLedger{script: []queryResult{
		{err: ledger.ErrNotFound},
		{receipt: ledger.Receipt{Settled: true, Status: ledger.StatusRejected}},
	}}
	store := NewStore(NewBus())
	require.NoError(t, store.Insert(Record{ID: "tx1", Symbol: "BTC", Timeframe: "1h"}))

	p := newTestPoller(client, store, 10)
	p.Track(context.Background(), "tx1")
	p.Wait()

	rec, _ := store.Get("tx1")
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.Err, ledger.StatusRejected)
	assert.Equal(t, 2, client.queryCount())
}

func TestPollerAcceptedWithoutFinalityStaysAccepted(t *testing.T) {
	client := &scriptedLedger{script: []queryResult{
		{receipt: ledger.Receipt{Settled: true, Status: ledger.StatusAccepted}},
	}}
	store := NewStore(NewBus())
	require.NoError(t, store.Insert(Record{ID: "tx1", Symbol: "BTC", Timeframe: "1h"}))

	p := newTestPoller(client, store, 5)
	p.Track(context.Background(), "tx1")
	p.Wait()

	rec, _ := store.Get("tx1")
	assert.Equal(t, StatusAccepted, rec.Status, "settled without observed finality is not pending")
	assert.Equal(t, 5, client.queryCount())
}

func TestPollerIndependentIDs(t *testing.T) {
	// A never-settling id must not delay a fast-settling one.
	slow := &scriptedLedger{script: []queryResult{{err: ledger.ErrNotFound}}}
	store := NewStore(NewBus())
	require.NoError(t, store.Insert(Record{ID: "slow", Symbol: "BTC", Timeframe: "1h"}))
	require.NoError(t, store.Insert(Record{ID: "fast", Symbol: "ETH", Timeframe: "1h"}))

	slowPoller := NewPoller(slow, store, 50*time.Millisecond, 100)

	fast := &scriptedLedger{script: []queryResult{
		{receipt: ledger.Receipt{Settled: true, Status: ledger.StatusFinalized}},
	}}
	fastPoller := newTestPoller(fast, store, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	slowPoller.Track(ctx, "slow")
	fastPoller.Track(ctx, "fast")
	fastPoller.Wait()

	rec, _ := store.Get("fast")
	assert.Equal(t, StatusFinalized, rec.Status)
	cancel()
	slowPoller.Wait()
}
