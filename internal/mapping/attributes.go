package mapping

import (
	"fmt"
	"strings"
)

// Attributes is a set of attribute values keyed by logical attribute name.
// A value is either a single scalar or a []any of values.
type Attributes map[string]any

// Lookup returns the value of name. Exact keys win; otherwise names match
// case-insensitively, as reserved attribute names do everywhere else.
func (a Attributes) Lookup(name string) (any, bool) {
	if v, ok := a[name]; ok {
		return v, true
	}
	for key, v := range a {
		if strings.EqualFold(key, name) {
			return v, true
		}
	}
	return nil, false
}

// Body is a request body ready for JSON encoding, with the password split
// out because it is set through a separate call.
type Body struct {
	Fields   map[string]any
	Password *string
}

// ToBody maps attributes to a request body. The name attribute is written
// to the name column; single-element lists are unwrapped and empty lists
// are omitted. The unique attribute is never sent.
func (c *Columns) ToBody(attrs Attributes) (Body, error) {
	body := Body{Fields: map[string]any{}}

	for name, raw := range attrs {
		value, present := single(raw)
		if !present {
			continue
		}

		switch {
		case strings.EqualFold(name, PasswordAttribute):
			s, ok := value.(string)
			if !ok {
				return Body{}, fmt.Errorf("attribute %s: password must be a string, got %T", name, value)
			}
			body.Password = &s
		case strings.EqualFold(name, UIDAttribute):
			continue
		case strings.EqualFold(name, NameAttribute):
			if _, isList := value.([]any); isList {
				return Body{}, fmt.Errorf("attribute %s: expected a single value", name)
			}
			body.Fields[c.layout.Name] = value
		default:
			body.Fields[name] = value
		}
	}
	return body, nil
}

// single unwraps a one-element list. Empty lists report not present.
func single(v any) (any, bool) {
	list, ok := v.([]any)
	if !ok {
		return v, true
	}
	switch len(list) {
	case 0:
		return nil, false
	case 1:
		return list[0], true
	default:
		return list, true
	}
}
