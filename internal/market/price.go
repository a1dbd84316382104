package market

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	symbolpkg "sibyl/internal/pkg/symbol"
)

// PriceSource returns the current spot price of a ticker in USD terms.
type PriceSource interface {
	SpotPrice(ctx context.Context, sym string) (decimal.Decimal, error)
}

// BinanceSource 基于 go-binance SDK 获取现货最新价（BTC -> BTCUSDT）。
type BinanceSource struct {
	client *binance.Client
}

type BinanceConfig struct {
	RESTBaseURL string
	HTTPTimeout time.Duration
}

func NewBinanceSource(cfg BinanceConfig) *BinanceSource {
	client := binance.NewClient("", "")
	if base := strings.TrimSpace(cfg.RESTBaseURL); base != "" {
		client.BaseURL = base
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}
	return &BinanceSource{client: client}
}

func (s *BinanceSource) SpotPrice(ctx context.Context, sym string) (decimal.Decimal, error) {
	pair := symbolpkg.BinancePair(sym)
	if pair == "" {
		return decimal.Zero, fmt.Errorf("price: symbol cannot be empty")
	}
	prices, err := s.client.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price %s: %w", pair, err)
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("price %s: empty ticker response", pair)
	}
	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price %s: bad ticker value %q: %w", pair, prices[0].Price, err)
	}
	if price.IsZero() || price.IsNegative() {
		return decimal.Zero, fmt.Errorf("price %s: non-positive ticker value %s", pair, price)
	}
	return price, nil
}
