package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	registry := []string{"BTC", "ETH", "SOL"}

	t.Run("whitelist intersects in registry order", func(t *testing.T) {
		assert.Equal(t, []string{"ETH", "SOL"}, Filter(registry, []string{"SOL", "ETH"}))
	})

	t.Run("empty whitelist keeps full registry", func(t *testing.T) {
		assert.Equal(t, []string{"BTC", "ETH", "SOL"}, Filter(registry, nil))
	})

	t.Run("whitelist entries missing from registry are ignored", func(t *testing.T) {
		assert.Equal(t, []string{"BTC"}, Filter(registry, []string{"btc", "DOGE"}))
	})

	t.Run("case and whitespace normalized", func(t *testing.T) {
		assert.Equal(t, []string{"ETH"}, Filter([]string{" eth "}, []string{"Eth"}))
	})
}

func TestBinancePair(t *testing.T) {
	assert.Equal(t, "BTCUSDT", BinancePair("btc"))
	assert.Equal(t, "ETHUSDT", BinancePair("ETHUSDT"))
	assert.Equal(t, "", BinancePair("  "))
}
