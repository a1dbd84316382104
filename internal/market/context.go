package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sibyl/internal/pkg/symbol"
)

// ContextBuilder 构建某个 symbol 的行情上下文快照（JSON 串）。
// Aggregation itself (price/indicator/news fetch) lives in a separate
// collaborator service; this package only defines the contract and a thin
// HTTP client for it.
type ContextBuilder interface {
	BuildContext(ctx context.Context, sym string) (string, error)
}

// RemoteContextBuilder fetches the context snapshot from the aggregation
// service over HTTP: GET {base}/context/{SYMBOL} returning the JSON blob.
type RemoteContextBuilder struct {
	base   string
	client *http.Client
}

func NewRemoteContextBuilder(baseURL string, timeout time.Duration) (*RemoteContextBuilder, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("context builder requires a base url")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid context builder url: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteContextBuilder{base: trimmed, client: &http.Client{Timeout: timeout}}, nil
}

func (b *RemoteContextBuilder) BuildContext(ctx context.Context, sym string) (string, error) {
	cleaned := symbol.Normalize(sym)
	if cleaned == "" {
		return "", fmt.Errorf("context: symbol cannot be empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+"/context/"+cleaned, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("context %s: %w", cleaned, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("context %s: read body: %w", cleaned, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("context %s: status %d", cleaned, resp.StatusCode)
	}
	return string(body), nil
}
