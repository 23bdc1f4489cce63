// Package normalize coerces loosely typed provider fields into typed optionals.
//
// Every function and decoder here is total: a value of the wrong shape
// becomes absent instead of producing an error.
package normalize

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/ppiankov/buybox/internal/model"
)

// ToFloat attempts numeric coercion of an arbitrary decoded JSON value.
// It returns nil for nil, non-numeric strings, and non-scalar values.
func ToFloat(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		p, ok := parseFloat(string(x))
		if !ok {
			return nil
		}
		f = p
	case string:
		p, ok := parseFloat(x)
		if !ok {
			return nil
		}
		f = p
	case bool:
		if x {
			f = 1
		}
	default:
		return nil
	}
	return &f
}

// parseFloat parses a trimmed decimal string. Out-of-range values keep the
// rounded result strconv reports. Hex and underscore forms are rejected.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// ExtractMoney reads a {value, currency} record. Anything that is not a JSON
// object yields an empty amount.
func ExtractMoney(v any) model.Money {
	m, ok := v.(map[string]any)
	if !ok {
		return model.Money{}
	}
	out := model.Money{Value: ToFloat(m["value"])}
	if c, ok := m["currency"].(string); ok {
		out.Currency = &c
	}
	return out
}
