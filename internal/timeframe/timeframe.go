package timeframe

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe 描述一个预测周期（合约侧的 horizon key + 本地有效期）。
type Timeframe struct {
	Key      string
	Duration time.Duration
}

var supported = map[string]Timeframe{
	"1h":  {Key: "1h", Duration: time.Hour},
	"4h":  {Key: "4h", Duration: 4 * time.Hour},
	"12h": {Key: "12h", Duration: 12 * time.Hour},
	"24h": {Key: "24h", Duration: 24 * time.Hour},
	"7d":  {Key: "7d", Duration: 7 * 24 * time.Hour},
	"30d": {Key: "30d", Duration: 30 * 24 * time.Hour},
}

// defaultOrder is the submission order used when no explicit set is configured.
// Shortest horizon first, matching the contract's documented set.
var defaultOrder = []string{"1h", "4h", "12h", "24h", "7d", "30d"}

// Parse 返回标准化周期定义。
func Parse(input string) (Timeframe, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	tf, ok := supported[key]
	if !ok {
		return Timeframe{}, fmt.Errorf("unsupported timeframe: %s", input)
	}
	return tf, nil
}

// MustParse is a test/default helper for keys known to be valid.
func MustParse(input string) Timeframe {
	tf, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return tf
}

// ParseSet normalizes a configured timeframe list, preserving its order and
// dropping duplicates. An empty input yields the full default set.
func ParseSet(inputs []string) ([]Timeframe, error) {
	if len(inputs) == 0 {
		return Defaults(), nil
	}
	seen := make(map[string]bool, len(inputs))
	out := make([]Timeframe, 0, len(inputs))
	for _, raw := range inputs {
		tf, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		if seen[tf.Key] {
			continue
		}
		seen[tf.Key] = true
		out = append(out, tf)
	}
	return out, nil
}

// Defaults returns the full horizon set in submission order.
func Defaults() []Timeframe {
	out := make([]Timeframe, 0, len(defaultOrder))
	for _, key := range defaultOrder {
		out = append(out, supported[key])
	}
	return out
}

// Keys 返回周期 key 列表（保持传入顺序）。
func Keys(tfs []Timeframe) []string {
	keys := make([]string, 0, len(tfs))
	for _, tf := range tfs {
		keys = append(keys, tf.Key)
	}
	return keys
}

func (tf Timeframe) String() string {
	return tf.Key
}

// ExpiresAt 返回基于生成时间的过期时刻。
func (tf Timeframe) ExpiresAt(generatedAt time.Time) time.Time {
	return generatedAt.Add(tf.Duration)
}
