package filter

import (
	"fmt"
	"time"
)

// Value is a sealed interface for the literal carried by a comparison leaf.
// Only Null, String, Int, Float, Bool, Bytes and Time implement it.
type Value interface {
	filterValue() // Sealed - only these types implement it
}

// Null is the absent value. Equals with Null compiles to IS NULL.
type Null struct{}

func (Null) filterValue() {}

// String is a text literal.
type String string

func (String) filterValue() {}

// Int is an integer literal.
type Int int64

func (Int) filterValue() {}

// Float is a floating point literal.
type Float float64

func (Float) filterValue() {}

// Bool is a boolean literal.
type Bool bool

func (Bool) filterValue() {}

// Bytes is a binary payload. Binary values never take part in
// server-side filtering.
type Bytes []byte

func (Bytes) filterValue() {}

// Time is a date/time literal.
type Time time.Time

func (Time) filterValue() {}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Native converts a Value to the plain Go value it wraps.
// Null (and a nil Value) convert to nil.
func Native(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Bytes:
		return []byte(val)
	case Time:
		return time.Time(val)
	default:
		return nil
	}
}

// ValueOf converts a plain Go value to a Value.
// Supported: nil, string, all int/uint widths, float32/64, bool, []byte,
// time.Time, and Value itself.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case bool:
		return Bool(val), nil
	case []byte:
		return Bytes(val), nil
	case time.Time:
		return Time(val), nil
	default:
		return nil, fmt.Errorf("unsupported filter value type: %T", v)
	}
}

// MustValueOf is ValueOf for literals known to be valid. It panics on
// unsupported types.
func MustValueOf(v any) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}
