package genlayer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/tidwall/gjson"

	"sibyl/internal/ledger"
	"sibyl/internal/logger"
	"sibyl/internal/pkg/circuit"
)

// JSON-RPC methods exposed by the GenLayer node.
const (
	methodCall     = "gen_call"
	methodSend     = "gen_sendTransaction"
	methodTxStatus = "gen_getTransactionStatus"
)

// Client implements ledger.Client and ledger.PredictionReader against a
// GenLayer JSON-RPC endpoint. Transport failures trip a circuit breaker so a
// dead node is shunned instead of hammered; contract-level errors do not
// count against the breaker.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *circuit.Breaker
	reqID   atomic.Int64
}

func New(cfg Config) (*Client, error) {
	final := cfg.withDefaults()
	if err := final.validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:     final,
		http:    &http.Client{Timeout: final.Timeout},
		breaker: circuit.NewBreaker("genlayer", final.BreakerThreshold, final.BreakerCooldown),
	}, nil
}

// Submit invokes a contract write method and returns the transaction hash.
func (c *Client) Submit(ctx context.Context, function string, args []any) (string, error) {
	params := []any{map[string]any{
		"from":     c.cfg.Account,
		"to":       c.cfg.ContractAddress,
		"function": function,
		"args":     args,
	}}
	result, err := c.rpc(ctx, methodSend, params)
	if err != nil {
		return "", err
	}
	txID := strings.TrimSpace(result.String())
	if txID == "" {
		return "", fmt.Errorf("genlayer: %s returned empty transaction id", function)
	}
	return txID, nil
}

// QueryStatus fetches the settlement receipt for a transaction.
func (c *Client) QueryStatus(ctx context.Context, txID string) (ledger.Receipt, error) {
	result, err := c.rpc(ctx, methodTxStatus, []any{txID})
	if err != nil {
		return ledger.Receipt{}, err
	}
	if !result.Exists() || result.Type == gjson.Null {
		return ledger.Receipt{}, ledger.ErrNotFound
	}
	status := strings.ToUpper(strings.TrimSpace(result.Get("status").String()))
	switch status {
	case ledger.StatusAccepted, ledger.StatusFinalized, ledger.StatusRejected, ledger.StatusCanceled:
		return ledger.Receipt{Settled: true, Status: status}, nil
	case "":
		return ledger.Receipt{}, ledger.ErrNotFound
	default:
		// PROPOSING / COMMITTING / PENDING and friends: still validating.
		return ledger.Receipt{Settled: false, Status: status}, nil
	}
}

// ListSymbols reads the contract's symbol registry in registry order.
func (c *Client) ListSymbols(ctx context.Context) ([]string, error) {
	result, err := c.read(ctx, ledger.FnListSymbols, []any{})
	if err != nil {
		return nil, err
	}
	return normalizeSymbolList(result), nil
}

// LatestPrediction returns the newest prediction for (symbol, timeframe).
func (c *Client) LatestPrediction(ctx context.Context, sym, tf string) (ledger.PredictionSummary, bool, error) {
	result, err := c.read(ctx, ledger.FnLatestByTimeframe, []any{sym, tf})
	if err != nil {
		if isMissingPrediction(err) {
			return ledger.PredictionSummary{}, false, nil
		}
		return ledger.PredictionSummary{}, false, err
	}
	if !result.Exists() || result.Type == gjson.Null {
		return ledger.PredictionSummary{}, false, nil
	}
	return parsePrediction(result), true, nil
}

// ExpiredPredictions lists predictions past their horizon still lacking an
// actual price.
func (c *Client) ExpiredPredictions(ctx context.Context, sym, tf string, limit int) ([]ledger.PredictionSummary, error) {
	result, err := c.read(ctx, ledger.FnExpiredPredictions, []any{sym, tf, limit})
	if err != nil {
		if isMissingPrediction(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []ledger.PredictionSummary
	result.ForEach(func(_, item gjson.Result) bool {
		out = append(out, parsePrediction(item))
		return true
	})
	return out, nil
}

func parsePrediction(item gjson.Result) ledger.PredictionSummary {
	return ledger.PredictionSummary{
		ID:          item.Get("prediction_id").String(),
		Symbol:      item.Get("symbol").String(),
		Timeframe:   item.Get("timeframe").String(),
		RawContext:  item.Get("raw_context").String(),
		ActualPrice: item.Get("actual_price").String(),
	}
}

// isMissingPrediction matches the contract's "nothing recorded yet" refusals,
// which callers treat as an empty result rather than an error.
func isMissingPrediction(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no predictions recorded") || strings.Contains(msg, "prediction missing")
}

func (c *Client) read(ctx context.Context, function string, args []any) (gjson.Result, error) {
	params := []any{map[string]any{
		"to":       c.cfg.ContractAddress,
		"function": function,
		"args":     args,
	}}
	return c.rpc(ctx, methodCall, params)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

func (c *Client) rpc(ctx context.Context, method string, params []any) (gjson.Result, error) {
	if !c.breaker.Allow() {
		return gjson.Result{}, ledger.ErrCircuitOpen
	}

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.reqID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("genlayer: marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.MarkFailure()
		return gjson.Result{}, fmt.Errorf("genlayer: %s: %w", method, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.MarkFailure()
		return gjson.Result{}, fmt.Errorf("genlayer: %s: read body: %w", method, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		c.breaker.MarkFailure()
		return gjson.Result{}, fmt.Errorf("genlayer: %s: endpoint status %d", method, resp.StatusCode)
	}
	c.breaker.MarkSuccess()

	if rpcErr := gjson.GetBytes(body, "error"); rpcErr.Exists() {
		return gjson.Result{}, classifyRPCError(method, rpcErr)
	}
	return gjson.GetBytes(body, "result"), nil
}

// classifyRPCError separates deterministic contract refusals from everything
// else. Execution reverts and argument errors cannot succeed on retry; node
// hiccups can.
func classifyRPCError(method string, rpcErr gjson.Result) error {
	code := rpcErr.Get("code").Int()
	msg := rpcErr.Get("message").String()
	lower := strings.ToLower(msg)

	notFound := strings.Contains(lower, "not found") || strings.Contains(lower, "unknown transaction")
	if method == methodTxStatus && notFound {
		return ledger.ErrNotFound
	}

	deterministic := code == 3 || // execution error per EIP-1474 convention
		strings.Contains(lower, "revert") ||
		strings.Contains(lower, "already exists") ||
		strings.Contains(lower, "not registered") ||
		strings.Contains(lower, "invalid argument") ||
		strings.Contains(lower, "cannot be empty")
	if deterministic {
		return ledger.NewRejection(method, msg)
	}

	logger.Debugf("genlayer: %s rpc error code=%d: %s", method, code, msg)
	return fmt.Errorf("genlayer: %s failed (code %d): %s", method, code, msg)
}
