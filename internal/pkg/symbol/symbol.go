package symbol

import "strings"

// Normalize 将 ticker 统一为大写无空白形式（如 " btc " -> "BTC"）。
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeList normalizes every entry and drops empties, preserving order.
func NormalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		n := Normalize(s)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Filter returns the intersection of registry and whitelist, preserving
// registry order. An empty whitelist means no filtering.
func Filter(registry, whitelist []string) []string {
	reg := NormalizeList(registry)
	wl := NormalizeList(whitelist)
	if len(wl) == 0 {
		return reg
	}
	allowed := make(map[string]bool, len(wl))
	for _, s := range wl {
		allowed[s] = true
	}
	out := make([]string, 0, len(reg))
	for _, s := range reg {
		if allowed[s] {
			out = append(out, s)
		}
	}
	return out
}

// BinancePair maps a ticker to its Binance spot pair, e.g. BTC -> BTCUSDT.
// Tickers already carrying a quote suffix are passed through.
func BinancePair(ticker string) string {
	t := Normalize(ticker)
	if t == "" {
		return ""
	}
	if strings.HasSuffix(t, "USDT") || strings.HasSuffix(t, "USDC") {
		return t
	}
	return t + "USDT"
}
