package submit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"sibyl/internal/logger"
)

// contextSchema is the minimal structural contract for the market-context
// payload. The payload is otherwise opaque to this service: the schema only
// pins down "JSON object, optionally stamped with generated_at" so obviously
// malformed context is caught before it costs a transaction.
const contextSchemaJSON = `{
  "type": "object",
  "properties": {
    "generated_at": {"type": "string"},
    "price": {"type": "object"},
    "technical_indicators": {"type": "object"}
  }
}`

var contextSchema = jsonschema.MustCompileString("context.json", contextSchemaJSON)

// NormalizeContext validates that the payload is JSON and re-serializes it in
// compact form so the contract always receives consistent formatting.
func NormalizeContext(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("context payload is empty")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(trimmed)); err != nil {
		return "", fmt.Errorf("context payload is not valid JSON: %w", err)
	}
	return buf.String(), nil
}

// WarnOnDegradedContext logs (but never blocks) when the context carries
// upstream API errors or violates the structural schema. Prediction quality
// may be reduced; the contract still decides what to do with it.
func WarnOnDegradedContext(sym, payload string) {
	if priceErr := gjson.Get(payload, "price.error"); priceErr.Exists() {
		logger.Warnf("context %s: price source error: %s (submitting anyway)", sym, priceErr.String())
	}
	if techErr := gjson.Get(payload, "technical_indicators.error"); techErr.Exists() {
		logger.Warnf("context %s: indicator source error: %s (submitting anyway)", sym, techErr.String())
	}

	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return
	}
	if err := contextSchema.Validate(doc); err != nil {
		logger.Warnf("context %s: schema check failed: %v (submitting anyway)", sym, err)
	}
}
