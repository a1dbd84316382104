package accuracy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sibyl/internal/ledger"
	"sibyl/internal/timeframe"
)

type stubContract struct {
	mu      sync.Mutex
	expired map[string][]ledger.PredictionSummary // keyed by "SYM/tf"
	readErr map[string]error
	sendErr map[string]error // keyed by prediction id
	sent    [][]any
}

func (s *stubContract) Submit(_ context.Context, function string, args []any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if function != ledger.FnRecordActualPrice {
		return "", fmt.Errorf("unexpected function %s", function)
	}
	if id, ok := args[0].(string); ok {
		if err := s.sendErr[id]; err != nil {
			return "", err
		}
	}
	s.sent = append(s.sent, args)
	return fmt.Sprintf("0xrec-%d", len(s.sent)), nil
}

func (s *stubContract) QueryStatus(context.Context, string) (ledger.Receipt, error) {
	return ledger.Receipt{Settled: true, Status: ledger.StatusFinalized}, nil
}

func (s *stubContract) ListSymbols(context.Context) ([]string, error) { return nil, nil }

func (s *stubContract) LatestPrediction(context.Context, string, string) (ledger.PredictionSummary, bool, error) {
	return ledger.PredictionSummary{}, false, nil
}

func (s *stubContract) ExpiredPredictions(_ context.Context, sym, tf string, limit int) ([]ledger.PredictionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sym + "/" + tf
	if err := s.readErr[key]; err != nil {
		return nil, err
	}
	preds := s.expired[key]
	if len(preds) > limit {
		preds = preds[:limit]
	}
	return preds, nil
}

type priceMap map[string]decimal.Decimal

func (p priceMap) SpotPrice(_ context.Context, sym string) (decimal.Decimal, error) {
	price, ok := p[sym]
	if !ok {
		return decimal.Zero, errors.New("no market data")
	}
	return price, nil
}

func newTestRecorder(contract *stubContract, prices priceMap, tfs ...string) *Recorder {
	parsed, _ := timeframe.ParseSet(tfs)
	r := NewRecorder(contract, contract, prices, parsed)
	r.pacing = 0
	return r
}

func TestRecorderWritesActualPrices(t *testing.T) {
	contract := &stubContract{expired: map[string][]ledger.PredictionSummary{
		"BTC/1h": {{ID: "p1", Symbol: "BTC", Timeframe: "1h"}},
		"ETH/1h": {{ID: "p2", Symbol: "ETH", Timeframe: "1h"}},
	}}
	prices := priceMap{
		"BTC": decimal.RequireFromString("50123.456"),
		"ETH": decimal.RequireFromString("2001.1"),
	}

	recorded, failed := newTestRecorder(contract, prices, "1h").Record(
		context.Background(), []string{"BTC", "ETH"})

	assert.Equal(t, 2, recorded)
	assert.Equal(t, 0, failed)
	require.Len(t, contract.sent, 2)
	assert.Equal(t, []any{"p1", "50123.46 USD"}, contract.sent[0])
	assert.Equal(t, []any{"p2", "2001.10 USD"}, contract.sent[1])
}

func TestRecorderSkipsAlreadySettled(t *testing.T) {
	contract := &stubContract{expired: map[string][]ledger.PredictionSummary{
		"BTC/1h": {
			{ID: "p1", Symbol: "BTC", Timeframe: "1h", ActualPrice: "48000.00 USD"},
			{ID: "p2", Symbol: "BTC", Timeframe: "1h"},
		},
	}}
	prices := priceMap{"BTC": decimal.NewFromInt(50000)}

	recorded, failed := newTestRecorder(contract, prices, "1h").Record(
		context.Background(), []string{"BTC"})

	assert.Equal(t, 1, recorded)
	assert.Equal(t, 0, failed)
	require.Len(t, contract.sent, 1)
	assert.Equal(t, "p2", contract.sent[0][0])
}

func TestRecorderCountsFailures(t *testing.T) {
	contract := &stubContract{
		expired: map[string][]ledger.PredictionSummary{
			"BTC/1h": {{ID: "p1", Symbol: "BTC", Timeframe: "1h"}},
			"ETH/1h": {{ID: "p2", Symbol: "ETH", Timeframe: "1h"}},
			"SOL/1h": {{ID: "p3", Symbol: "SOL", Timeframe: "1h"}},
		},
		sendErr: map[string]error{"p1": errors.New("execution reverted")},
	}
	// SOL has no market data, p1's write is rejected, only p2 lands.
	prices := priceMap{
		"BTC": decimal.NewFromInt(50000),
		"ETH": decimal.NewFromInt(2000),
	}

	recorded, failed := newTestRecorder(contract, prices, "1h").Record(
		context.Background(), []string{"BTC", "ETH", "SOL"})

	assert.Equal(t, 1, recorded)
	assert.Equal(t, 2, failed)
}

func TestRecorderToleratesReadFailures(t *testing.T) {
	contract := &stubContract{
		expired: map[string][]ledger.PredictionSummary{
			"ETH/1h": {{ID: "p1", Symbol: "ETH", Timeframe: "1h"}},
		},
		readErr: map[string]error{"BTC/1h": errors.New("rpc timeout")},
	}
	prices := priceMap{"ETH": decimal.NewFromInt(2000)}

	recorded, failed := newTestRecorder(contract, prices, "1h").Record(
		context.Background(), []string{"BTC", "ETH"})

	assert.Equal(t, 1, recorded)
	assert.Equal(t, 0, failed)
}

func TestRecorderNothingExpired(t *testing.T) {
	contract := &stubContract{}
	recorded, failed := newTestRecorder(contract, priceMap{}, "1h").Record(
		context.Background(), []string{"BTC"})
	assert.Equal(t, 0, recorded)
	assert.Equal(t, 0, failed)
	assert.Empty(t, contract.sent)
}
