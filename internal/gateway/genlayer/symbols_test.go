package genlayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestNormalizeSymbolList(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"plain array", `["btc","eth","sol"]`, []string{"BTC", "ETH", "SOL"}},
		{"numeric keyed object", `{"1":"eth","0":"btc","10":"sol"}`, []string{"BTC", "ETH", "SOL"}},
		{"numeric keys with length", `{"0":"btc","1":"eth","length":2}`, []string{"BTC", "ETH"}},
		{"symbol keyed object", `{"BTC":{"active":true},"ETH":{"active":true}}`, []string{"BTC", "ETH"}},
		{"null", `null`, nil},
		{"empty array", `[]`, nil},
		{"array with blanks", `["btc","","  "]`, []string{"BTC"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeSymbolList(gjson.Parse(tc.raw))
			assert.Equal(t, tc.want, got)
		})
	}
}
