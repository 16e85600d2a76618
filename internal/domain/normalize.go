package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// count coerces a document value into a non-negative quantity
func count(v any) int {
	n, err := cast.ToIntE(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// optionalCount is like count but keeps "absent or unusable" distinguishable from zero
func optionalCount(v any) *int {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	n, err := cast.ToIntE(v)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// label renders size labels that may be stored as numbers ("32" vs 32)
func label(v any) string {
	return strings.TrimSpace(cast.ToString(v))
}

// money decodes a stored amount, quoted or not; anything unparseable is zero
func money(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero
	}
	return d
}
