package genlayer

import (
	"sort"
	"strconv"

	"github.com/tidwall/gjson"

	"sibyl/internal/logger"
	"sibyl/internal/pkg/symbol"
)

// normalizeSymbolList copes with the shapes the contract runtime has been
// seen returning for list_symbols: a plain array, an object with numeric
// string keys ("0", "1", ...), or an object keyed by the symbols themselves.
func normalizeSymbolList(result gjson.Result) []string {
	if !result.Exists() || result.Type == gjson.Null {
		return nil
	}

	if result.IsArray() {
		var out []string
		result.ForEach(func(_, item gjson.Result) bool {
			if s := symbol.Normalize(item.String()); s != "" {
				out = append(out, s)
			}
			return true
		})
		return out
	}

	if result.IsObject() {
		type indexed struct {
			idx int
			val string
		}
		var numeric []indexed
		var named []string
		result.ForEach(func(key, value gjson.Result) bool {
			k := key.String()
			if k == "length" {
				return true
			}
			if idx, err := strconv.Atoi(k); err == nil {
				numeric = append(numeric, indexed{idx: idx, val: value.String()})
			} else {
				named = append(named, k)
			}
			return true
		})
		if len(numeric) > 0 {
			sort.Slice(numeric, func(i, j int) bool { return numeric[i].idx < numeric[j].idx })
			out := make([]string, 0, len(numeric))
			for _, entry := range numeric {
				if s := symbol.Normalize(entry.val); s != "" {
					out = append(out, s)
				}
			}
			return out
		}
		return symbol.NormalizeList(named)
	}

	logger.Debugf("genlayer: unexpected list_symbols shape: %s", result.Type)
	return nil
}
