package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sibyl/internal/agent"
	"sibyl/internal/track"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "runlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		summary := agent.RunSummary{
			RunID:            string(rune('a'+i)) + "-run",
			StartedAt:        base.Add(time.Duration(i) * time.Hour),
			FinishedAt:       base.Add(time.Duration(i)*time.Hour + time.Minute),
			UpdatesAttempted: 10 + i,
			UpdatesFailed:    i,
			Errors:           []string{"BTC 1h: boom"},
		}
		require.NoError(t, store.AppendRun(ctx, summary))
	}

	runs, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c-run", runs[0].RunID, "newest first")
	assert.Equal(t, "b-run", runs[1].RunID)
	assert.Equal(t, 12, runs[0].UpdatesAttempted)
	assert.Equal(t, []string{"BTC 1h: boom"}, runs[0].Errors, "detail JSON round-trips")
}

func TestDuplicateRunIDRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	summary := agent.RunSummary{RunID: "dup", StartedAt: time.Now().UTC()}

	require.NoError(t, store.AppendRun(ctx, summary))
	assert.Error(t, store.AppendRun(ctx, summary))
}

func TestOutcomesBySymbol(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := []track.Record{
		{ID: "0x1", Symbol: "BTC", Timeframe: "1h", Status: track.StatusFinalized},
		{ID: "0x2", Symbol: "ETH", Timeframe: "4h", Status: track.StatusFailed, Err: "rejected"},
		{ID: "0x3", Symbol: "BTC", Timeframe: "24h", Status: track.StatusPending, Err: "poll budget exhausted"},
	}
	for _, rec := range records {
		require.NoError(t, store.RecordOutcome(ctx, rec))
	}

	btc, err := store.OutcomesBySymbol(ctx, "BTC", 10)
	require.NoError(t, err)
	require.Len(t, btc, 2)
	for _, rec := range btc {
		assert.Equal(t, "BTC", rec.Symbol)
	}

	eth, err := store.OutcomesBySymbol(ctx, "ETH", 10)
	require.NoError(t, err)
	require.Len(t, eth, 1)
	assert.Equal(t, track.StatusFailed, eth[0].Status)
	assert.Equal(t, "rejected", eth[0].Err)
}
