package genlayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"sibyl/internal/ledger"
)

type rpcHandler func(method string, params gjson.Result) (any, *rpcError)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newRPCServer(t *testing.T, handler rpcHandler) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64           `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req.Method, gjson.ParseBytes(req.Params))
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	client, err := New(Config{
		Endpoint:        srv.URL,
		ContractAddress: "0xcontract",
		Account:         "0xoperator",
	})
	require.NoError(t, err)
	return client
}

func TestClientSubmit(t *testing.T) {
	srv := newRPCServer(t, func(method string, params gjson.Result) (any, *rpcError) {
		assert.Equal(t, methodSend, method)
		call := params.Get("0")
		assert.Equal(t, "0xcontract", call.Get("to").String())
		assert.Equal(t, "0xoperator", call.Get("from").String())
		assert.Equal(t, "request_update", call.Get("function").String())
		assert.Equal(t, "BTC", call.Get("args.0").String())
		return "0xtxhash", nil
	})
	defer srv.Close()

	txID, err := newTestClient(t, srv).Submit(context.Background(),
		ledger.FnRequestUpdate, []any{"BTC", `{"price":1}`, "1h"})
	require.NoError(t, err)
	assert.Equal(t, "0xtxhash", txID)
}

func TestClientSubmitRejection(t *testing.T) {
	srv := newRPCServer(t, func(string, gjson.Result) (any, *rpcError) {
		return nil, &rpcError{Code: 3, Message: "execution reverted: symbol not registered"}
	})
	defer srv.Close()

	_, err := newTestClient(t, srv).Submit(context.Background(),
		ledger.FnRequestUpdate, []any{"XXX", "{}", "1h"})
	require.Error(t, err)
	assert.True(t, ledger.IsTerminal(err), "contract revert must be terminal")
}

func TestClientSubmitTransientError(t *testing.T) {
	srv := newRPCServer(t, func(string, gjson.Result) (any, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "node is syncing"}
	})
	defer srv.Close()

	_, err := newTestClient(t, srv).Submit(context.Background(),
		ledger.FnRequestUpdate, []any{"BTC", "{}", "1h"})
	require.Error(t, err)
	assert.False(t, ledger.IsTerminal(err), "node hiccups are retryable")
}

func TestClientQueryStatus(t *testing.T) {
	statuses := map[string]struct {
		settled bool
		code    string
	}{
		"PROPOSING": {settled: false, code: "PROPOSING"},
		"ACCEPTED":  {settled: true, code: ledger.StatusAccepted},
		"FINALIZED": {settled: true, code: ledger.StatusFinalized},
		"REJECTED":  {settled: true, code: ledger.StatusRejected},
	}
	for raw, want := range statuses {
		t.Run(raw, func(t *testing.T) {
			srv := newRPCServer(t, func(method string, params gjson.Result) (any, *rpcError) {
				assert.Equal(t, methodTxStatus, method)
				assert.Equal(t, "0xtx", params.Get("0").String())
				return map[string]any{"status": raw}, nil
			})
			defer srv.Close()

			receipt, err := newTestClient(t, srv).QueryStatus(context.Background(), "0xtx")
			require.NoError(t, err)
			assert.Equal(t, want.settled, receipt.Settled)
			assert.Equal(t, want.code, receipt.Status)
		})
	}
}

func TestClientQueryStatusNotFound(t *testing.T) {
	srv := newRPCServer(t, func(string, gjson.Result) (any, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "transaction not found"}
	})
	defer srv.Close()

	_, err := newTestClient(t, srv).QueryStatus(context.Background(), "0xmissing")
	assert.True(t, errors.Is(err, ledger.ErrNotFound))
}

func TestClientListSymbols(t *testing.T) {
	srv := newRPCServer(t, func(method string, params gjson.Result) (any, *rpcError) {
		assert.Equal(t, methodCall, method)
		assert.Equal(t, "list_symbols", params.Get("0.function").String())
		return []string{"btc", "eth"}, nil
	})
	defer srv.Close()

	symbols, err := newTestClient(t, srv).ListSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH"}, symbols)
}

func TestClientLatestPrediction(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		srv := newRPCServer(t, func(string, gjson.Result) (any, *rpcError) {
			return map[string]any{
				"prediction_id": "BTC-1h-42",
				"symbol":        "BTC",
				"timeframe":     "1h",
				"raw_context":   `{"generated_at":"2025-03-01T12:00:00Z"}`,
			}, nil
		})
		defer srv.Close()

		pred, ok, err := newTestClient(t, srv).LatestPrediction(context.Background(), "BTC", "1h")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "BTC-1h-42", pred.ID)
		assert.Contains(t, pred.RawContext, "generated_at")
	})

	t.Run("none recorded yet", func(t *testing.T) {
		srv := newRPCServer(t, func(string, gjson.Result) (any, *rpcError) {
			return nil, &rpcError{Code: 3, Message: "execution reverted: no predictions recorded"}
		})
		defer srv.Close()

		_, ok, err := newTestClient(t, srv).LatestPrediction(context.Background(), "BTC", "1h")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestClientCircuitBreaker(t *testing.T) {
	var calls int
	srv := newRPCServer(t, func(string, gjson.Result) (any, *rpcError) { return nil, nil })
	srv.Close() // transport failures from the start

	client, err := New(Config{
		Endpoint:         srv.URL,
		ContractAddress:  "0xcontract",
		BreakerThreshold: 2,
	})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.ListSymbols(ctx)
		require.Error(t, err)
		calls++
	}
	_, err = client.ListSymbols(ctx)
	assert.True(t, errors.Is(err, ledger.ErrCircuitOpen),
		fmt.Sprintf("breaker should be open after %d transport failures", calls))
}
