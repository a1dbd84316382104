package ledger

import "context"

// Contract function names exposed by the prediction manager contract.
const (
	FnRequestUpdate      = "request_update"
	FnListSymbols        = "list_symbols"
	FnAddSymbol          = "add_symbol"
	FnLatestByTimeframe  = "get_latest_prediction_by_timeframe"
	FnExpiredPredictions = "get_expired_predictions"
	FnRecordActualPrice  = "record_actual_price"
)

// Receipt 描述一次状态查询返回的交易回执。
type Receipt struct {
	// Settled means the ledger has durably recorded an outcome for the
	// transaction. When false the transaction is still being validated.
	Settled bool
	// Status is the ledger's settlement code, e.g. ACCEPTED or FINALIZED.
	Status string
}

// Settlement codes surfaced by the ledger.
const (
	StatusAccepted  = "ACCEPTED"
	StatusFinalized = "FINALIZED"
	StatusRejected  = "REJECTED"
	StatusCanceled  = "CANCELED"
)

// Accepted reports a settled receipt with a success code.
func (r Receipt) Accepted() bool {
	return r.Settled && (r.Status == StatusAccepted || r.Status == StatusFinalized)
}

// Finalized reports the stronger finality code.
func (r Receipt) Finalized() bool {
	return r.Settled && r.Status == StatusFinalized
}

// Rejected reports a settled receipt whose outcome is a terminal refusal.
func (r Receipt) Rejected() bool {
	return r.Settled && (r.Status == StatusRejected || r.Status == StatusCanceled)
}

// Client is the write/track contract against the ledger. Implementations live
// in internal/gateway; the core pipeline only depends on this interface.
type Client interface {
	// Submit invokes a contract write method and returns the ledger-assigned
	// transaction id. Submission errors are transient unless wrapped as a
	// RejectionError.
	Submit(ctx context.Context, function string, args []any) (string, error)
	// QueryStatus fetches the receipt for a submitted transaction.
	// ErrNotFound is expected while the transaction is not yet observable.
	QueryStatus(ctx context.Context, txID string) (Receipt, error)
	// ListSymbols returns the registered symbol set in registry order.
	ListSymbols(ctx context.Context) ([]string, error)
}

// PredictionSummary 是合约返回的单条预测（只保留本服务关心的字段）。
type PredictionSummary struct {
	ID          string
	Symbol      string
	Timeframe   string
	RawContext  string
	ActualPrice string
}

// PredictionReader exposes the contract's read views needed by the expiry
// pre-check and the accuracy recorder.
type PredictionReader interface {
	// LatestPrediction returns the newest prediction for (symbol, timeframe).
	// The second return is false when no prediction exists yet.
	LatestPrediction(ctx context.Context, symbol, timeframe string) (PredictionSummary, bool, error)
	// ExpiredPredictions lists predictions past their horizon that still lack
	// an actual price, bounded by limit.
	ExpiredPredictions(ctx context.Context, symbol, timeframe string, limit int) ([]PredictionSummary, error)
}
