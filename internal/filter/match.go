package filter

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Lookup returns the value of an attribute on the record being tested.
// ok is false when the record does not carry the attribute.
type Lookup func(attribute string) (value any, ok bool)

// Matches evaluates f against a record on the client side.
//
// It is used to post-filter results when only part of a filter could be
// pushed to the remote service. String comparisons are case-insensitive
// like the remote LIKE and = operators. Multi-valued attributes ([]any)
// match when any element matches. A nil filter matches everything.
func Matches(f Filter, lookup Lookup) bool {
	switch n := Unwrap(f).(type) {
	case nil:
		return true
	case And:
		return Matches(n.Left, lookup) && Matches(n.Right, lookup)
	case Or:
		return Matches(n.Left, lookup) || Matches(n.Right, lookup)
	case Not:
		return !Matches(n.Filter, lookup)
	case Equals:
		if IsNull(n.Value) {
			v, ok := lookup(n.Attribute)
			return !ok || v == nil || v == ""
		}
		return anyElement(lookup, n.Attribute, func(v any) bool {
			c, ok := compare(v, n.Value)
			return ok && c == 0
		})
	case Contains:
		return matchPattern(lookup, n.Attribute, n.Value, strings.Contains)
	case StartsWith:
		return matchPattern(lookup, n.Attribute, n.Value, strings.HasPrefix)
	case EndsWith:
		return matchPattern(lookup, n.Attribute, n.Value, strings.HasSuffix)
	case GreaterThan:
		return matchOrdering(lookup, n.Attribute, n.Value, func(c int) bool { return c > 0 })
	case GreaterOrEqual:
		return matchOrdering(lookup, n.Attribute, n.Value, func(c int) bool { return c >= 0 })
	case LessThan:
		return matchOrdering(lookup, n.Attribute, n.Value, func(c int) bool { return c < 0 })
	case LessOrEqual:
		return matchOrdering(lookup, n.Attribute, n.Value, func(c int) bool { return c <= 0 })
	default:
		return false
	}
}

func anyElement(lookup Lookup, attribute string, pred func(any) bool) bool {
	v, ok := lookup(attribute)
	if !ok || v == nil {
		return false
	}
	if list, isList := v.([]any); isList {
		for _, elem := range list {
			if elem != nil && pred(elem) {
				return true
			}
		}
		return false
	}
	return pred(v)
}

func matchPattern(lookup Lookup, attribute string, value Value, match func(s, sub string) bool) bool {
	pattern, ok := value.(String)
	if !ok {
		return false
	}
	want := foldCase(string(pattern))
	return anyElement(lookup, attribute, func(v any) bool {
		s, isString := v.(string)
		return isString && match(foldCase(s), want)
	})
}

func matchOrdering(lookup Lookup, attribute string, value Value, accept func(int) bool) bool {
	if IsNull(value) {
		return false
	}
	return anyElement(lookup, attribute, func(v any) bool {
		c, ok := compare(v, value)
		return ok && accept(c)
	})
}

// foldCase normalises a string for case-insensitive comparison.
// A Caser is stateful, so each call gets its own.
func foldCase(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// compare orders a record value against a filter literal.
// ok is false when the two cannot be compared.
func compare(record any, literal Value) (int, bool) {
	switch lit := literal.(type) {
	case String:
		s, ok := record.(string)
		if !ok {
			s = fmt.Sprint(record)
		}
		return strings.Compare(foldCase(s), foldCase(string(lit))), true
	case Int:
		f, ok := toFloat(record)
		if !ok {
			return 0, false
		}
		return compareFloat(f, float64(lit)), true
	case Float:
		f, ok := toFloat(record)
		if !ok {
			return 0, false
		}
		return compareFloat(f, float64(lit)), true
	case Bool:
		b, ok := toBool(record)
		if !ok {
			return 0, false
		}
		switch {
		case b == bool(lit):
			return 0, true
		case !b:
			return -1, true
		default:
			return 1, true
		}
	case Time:
		t, ok := toTime(record)
		if !ok {
			return 0, false
		}
		return t.Compare(time.Time(lit)), true
	case Bytes:
		switch r := record.(type) {
		case []byte:
			return bytes.Compare(r, lit), true
		case string:
			return strings.Compare(r, base64.StdEncoding.EncodeToString(lit)), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	default:
		return false, false
	}
}

// Remote date/time fields arrive as strings in one of these layouts.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
