// Package convert provides defensive conversion of wire values.
package convert

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Float converts a wire value to float64. The Hyperliquid info API returns
// most numerics as decimal strings but has shipped plain numbers for the same
// fields, so both are accepted. ok is false for nil, empty and unparsable
// input: the string "0" yields (0, true) while a missing field yields
// (0, false), and the two must never be conflated.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FloatOr converts like Float but collapses missing to a fallback. Only for
// fields where the fallback is semantically safe (display metadata, ratios).
func FloatOr(v any, fallback float64) float64 {
	if f, ok := Float(v); ok {
		return f
	}
	return fallback
}

// FloatPtr converts like Float but maps missing to nil, which is how
// snapshot fields represent "unavailable".
func FloatPtr(v any) *float64 {
	if f, ok := Float(v); ok {
		return &f
	}
	return nil
}

// ParseFloat is Float over a raw string field.
func ParseFloat(s string) (float64, bool) {
	return Float(s)
}
