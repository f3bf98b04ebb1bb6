package soql

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidArgument reports malformed construction input: an empty
// parameter name, a nil parameter, or an empty select list.
var ErrInvalidArgument = errors.New("invalid argument")

// Param is one bound value of a WHERE clause: a column name, its value and
// the declared column type. Params are immutable after construction.
type Param struct {
	name  string
	value any
	typ   Type
}

// NewParam creates a Param. The name is required.
func NewParam(name string, value any, typ Type) (*Param, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: param name must not be empty", ErrInvalidArgument)
	}
	return &Param{name: name, value: value, typ: typ}, nil
}

// NewUntypedParam creates a Param with TypeNull as its declared type.
func NewUntypedParam(name string, value any) (*Param, error) {
	return NewParam(name, value, TypeNull)
}

// Name returns the column name.
func (p *Param) Name() string { return p.name }

// Value returns the bound value (may be nil).
func (p *Param) Value() any { return p.value }

// Type returns the declared column type.
func (p *Param) Type() Type { return p.typ }

// Equal reports whether two params bind the same (name, value, type).
func (p *Param) Equal(other *Param) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.name == other.name &&
		p.typ == other.typ &&
		reflect.DeepEqual(p.value, other.value)
}

// String renders the param for diagnostics as name="value":[TYPE].
// The type tag is omitted for TypeNull; unknown codes render as
// [SOQL Type:<code>].
func (p *Param) String() string {
	var sb strings.Builder
	sb.WriteString(p.name)
	sb.WriteString("=\"")
	sb.WriteString(literalText(p.value))
	sb.WriteString("\"")

	switch name := p.typ.Name(); {
	case p.typ == TypeNull:
	case name != "":
		sb.WriteString(":[" + name + "]")
	default:
		sb.WriteString(":[SOQL Type:" + strconv.Itoa(int(p.typ)) + "]")
	}
	return sb.String()
}

// literalText is the plain textual form of a bound value.
func literalText(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(v)
	}
}
