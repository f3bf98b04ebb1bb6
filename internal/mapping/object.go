package mapping

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/sfconnect/internal/filter"
)

// Object is one remote record mapped to connector form.
type Object struct {
	UID        string
	Name       string
	Attributes map[string]any
}

// ToObject maps a raw record returned by a query. The unique and name
// columns become UID and Name. Empty strings and nulls are dropped, lists
// pass through unchanged, and nested objects (such as the record's
// "attributes" metadata) are skipped.
func (c *Columns) ToObject(record map[string]any) Object {
	obj := Object{Attributes: map[string]any{}}

	for key, value := range record {
		switch key {
		case c.layout.Unique:
			obj.UID = text(value)
			continue
		case c.layout.Name:
			obj.Name = text(value)
			continue
		}

		switch v := value.(type) {
		case nil, map[string]any:
			continue
		case string:
			if v == "" {
				continue
			}
			obj.Attributes[key] = v
		default:
			obj.Attributes[key] = v
		}
	}
	return obj
}

func text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Lookup returns a filter lookup over obj. Attributes resolve through the
// column layout, so both __NAME__ and the name column find obj.Name.
// Column names match case-insensitively, as they do remotely.
func (c *Columns) Lookup(obj Object) filter.Lookup {
	return func(attribute string) (any, bool) {
		column := c.Column(attribute)
		switch {
		case strings.EqualFold(column, c.layout.Unique):
			return obj.UID, obj.UID != ""
		case strings.EqualFold(column, c.layout.Name):
			return obj.Name, obj.Name != ""
		}
		if v, ok := obj.Attributes[column]; ok {
			return v, true
		}
		for key, v := range obj.Attributes {
			if strings.EqualFold(key, column) {
				return v, true
			}
		}
		return nil, false
	}
}

// Keys returns the attribute names of obj in sorted order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o.Attributes))
	for k := range o.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
