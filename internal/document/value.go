// Package document models the records handed to the Batch Buffer and the
// strategies that turn them into JSON payloads.
package document

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrUnsupportedValue is returned for values outside the five scalar kinds, and
// for floats that have no JSON form (NaN, ±Inf).
var ErrUnsupportedValue = errors.New("unsupported document value")

// Kind is the scalar kind held by a Value.
type Kind uint8

// Scalar kinds.
const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a scalar field value. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// String returns a text value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns a 64-bit integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a 64-bit float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Null returns the null value.
func Null() Value { return Value{} }

// Kind reports the scalar kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the text of a string value.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Int64 returns the integer of an int value.
func (v Value) Int64() (int64, bool) { return v.i, v.kind == KindInt }

// Float64 returns the float of a float value.
func (v Value) Float64() (float64, bool) { return v.f, v.kind == KindFloat }

// Boolean returns the flag of a bool value.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Interface returns v as a plain Go value: nil, string, int64, float64 or bool.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether both values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// GoString helps test failure output.
func (v Value) GoString() string {
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	return fmt.Sprintf("%v", v.Interface())
}

type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// ValueOf converts a plain Go value. Nil, strings, booleans, every integer and
// float type, and decoder numbers (json.Number) are accepted; anything else
// yields ErrUnsupportedValue.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return fromUint(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case number:
		return parseNumber(t)
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, x)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedValue, u)
	}
	return Int(int64(u)), nil
}

func parseNumber(n number) (Value, error) {
	if !looksFloat(n.String()) {
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("%w: number %q: %w", ErrUnsupportedValue, n.String(), err)
	}
	return Float(f), nil
}

func looksFloat(s string) bool {
	for i := range len(s) {
		switch s[i] {
		case '.', 'e', 'E':
			return true
		}
	}
	return false
}

// ParseValue interprets command-line text: "null", "true"/"false", integers and
// floats become their kinds; a value wrapped in double quotes, or anything
// else, stays text.
func ParseValue(raw string) Value {
	if n := len(raw); n >= 2 && raw[0] == '"' && raw[n-1] == '"' {
		return String(raw[1 : n-1])
	}
	switch raw {
	case "null":
		return Null()
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Float(f)
	}
	return String(raw)
}

// formatFloat renders f so that it decodes back as a float: integral values
// keep a trailing ".0".
func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: float %v", ErrUnsupportedValue, f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !looksFloat(s) {
		s += ".0"
	}
	return s, nil
}
