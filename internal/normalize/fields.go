package normalize

import (
	"bytes"
	"encoding/json"

	"github.com/ppiankov/buybox/internal/model"
)

// Float is a number decoded with ToFloat rules
type Float struct {
	Valid bool
	Value float64
}

func (f *Float) UnmarshalJSON(data []byte) error {
	*f = Float{}
	if p := ToFloat(decodeAny(data)); p != nil {
		*f = Float{Valid: true, Value: *p}
	}
	return nil
}

// Ptr returns the value, or nil when absent
func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// Bool holds a JSON boolean. Strings and numbers such as "true" or 1 are
// treated as absent.
type Bool struct {
	Valid bool
	Value bool
}

func (b *Bool) UnmarshalJSON(data []byte) error {
	*b = Bool{}
	if v, ok := decodeAny(data).(bool); ok {
		*b = Bool{Valid: true, Value: v}
	}
	return nil
}

// Ptr returns the value, or nil when absent
func (b Bool) Ptr() *bool {
	if !b.Valid {
		return nil
	}
	v := b.Value
	return &v
}

// IsTrue reports whether the field is exactly JSON true
func (b Bool) IsTrue() bool {
	return b.Valid && b.Value
}

// Text holds a JSON string. Other JSON types are treated as absent.
type Text struct {
	Valid bool
	Value string
}

func (t *Text) UnmarshalJSON(data []byte) error {
	*t = Text{}
	if v, ok := decodeAny(data).(string); ok {
		*t = Text{Valid: true, Value: v}
	}
	return nil
}

// Ptr returns the value, or nil when absent
func (t Text) Ptr() *string {
	if !t.Valid {
		return nil
	}
	v := t.Value
	return &v
}

// NonEmpty returns the value, or nil when absent or empty
func (t Text) NonEmpty() *string {
	if !t.Valid || t.Value == "" {
		return nil
	}
	return t.Ptr()
}

// Money is a {value, currency} record decoded with ExtractMoney rules
type Money model.Money

func (m *Money) UnmarshalJSON(data []byte) error {
	*m = Money(ExtractMoney(decodeAny(data)))
	return nil
}

// Amount returns the decoded amount
func (m Money) Amount() model.Money {
	return model.Money(m)
}

// List decodes a JSON array; any other JSON type yields an empty list
type List[T any] []T

func (l *List[T]) UnmarshalJSON(data []byte) error {
	*l = nil
	if !isJSON(data, '[') {
		return nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// DecodeObject decodes data into v only when data is a JSON object. Callers
// use it from UnmarshalJSON with a method-less alias of their own type so
// that records of the wrong shape decode as empty.
func DecodeObject(data []byte, v any) error {
	if !isJSON(data, '{') {
		return nil
	}
	return json.Unmarshal(data, v)
}

func isJSON(data []byte, open byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == open
}

func decodeAny(data []byte) any {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return v
}
