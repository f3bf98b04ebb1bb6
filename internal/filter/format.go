package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Format renders a filter as a compact prefix expression for logs and
// diagnostics, e.g. AND(STARTS_WITH(Name, "A"), GREATER_THAN(Age, 30)).
func Format(f Filter) string {
	var sb strings.Builder
	format(&sb, f)
	return sb.String()
}

func format(sb *strings.Builder, f Filter) {
	switch n := Unwrap(f).(type) {
	case nil:
		sb.WriteString("<nil>")
	case And:
		sb.WriteString("AND(")
		format(sb, n.Left)
		sb.WriteString(", ")
		format(sb, n.Right)
		sb.WriteString(")")
	case Or:
		sb.WriteString("OR(")
		format(sb, n.Left)
		sb.WriteString(", ")
		format(sb, n.Right)
		sb.WriteString(")")
	case Not:
		sb.WriteString("NOT(")
		format(sb, n.Filter)
		sb.WriteString(")")
	default:
		attr, value, _ := Leaf(n)
		fmt.Fprintf(sb, "%s(%s, %s)", kindName(n), attr, FormatValue(value))
	}
}

func kindName(f Filter) string {
	switch f.(type) {
	case Equals:
		return "EQUALS"
	case Contains:
		return "CONTAINS"
	case StartsWith:
		return "STARTS_WITH"
	case EndsWith:
		return "ENDS_WITH"
	case GreaterThan:
		return "GREATER_THAN"
	case GreaterOrEqual:
		return "GREATER_OR_EQUAL"
	case LessThan:
		return "LESS_THAN"
	case LessOrEqual:
		return "LESS_OR_EQUAL"
	default:
		return fmt.Sprintf("%T", f)
	}
}

// FormatValue renders a Value for diagnostics. Strings are double quoted.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case String:
		return strconv.Quote(string(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Bytes:
		return fmt.Sprintf("<%d bytes>", len(val))
	case Time:
		return time.Time(val).UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}
