package agent

import (
	"context"
	"fmt"
	"time"

	"sibyl/internal/ledger"
)

// HealthStatus 是一次就绪检查的结果。Symbols 携带检查时读到的注册表，
// 健康时交给编排器复用，避免同一轮内重复查询合约。
type HealthStatus struct {
	Healthy   bool      `json:"healthy"`
	Reason    string    `json:"reason,omitempty"`
	Symbols   []string  `json:"symbols,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// HealthChecker gates scheduled runs on contract reachability. The contract
// is considered ready when its symbol registry can be read and is non-empty;
// an empty registry means there is nothing to update and usually indicates a
// wrong contract address.
type HealthChecker struct {
	client ledger.Client
	nowFn  func() time.Time
}

func NewHealthChecker(client ledger.Client) *HealthChecker {
	return &HealthChecker{client: client, nowFn: time.Now}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{CheckedAt: h.nowFn()}
	symbols, err := h.client.ListSymbols(ctx)
	if err != nil {
		status.Reason = fmt.Sprintf("symbol registry unreachable: %v", err)
		return status
	}
	if len(symbols) == 0 {
		status.Reason = "symbol registry is empty"
		return status
	}
	status.Healthy = true
	status.Symbols = symbols
	return status
}
