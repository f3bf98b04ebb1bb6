package filter

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// node is the YAML form of a filter. Exactly one field must be set.
//
//	and:
//	  - starts_with: {attribute: Name, value: A}
//	  - greater_than: {attribute: Age, value: 30}
type node struct {
	And            []node `yaml:"and,omitempty"`
	Or             []node `yaml:"or,omitempty"`
	Not            *node  `yaml:"not,omitempty"`
	Equals         *leaf  `yaml:"equals,omitempty"`
	Contains       *leaf  `yaml:"contains,omitempty"`
	StartsWith     *leaf  `yaml:"starts_with,omitempty"`
	EndsWith       *leaf  `yaml:"ends_with,omitempty"`
	GreaterThan    *leaf  `yaml:"greater_than,omitempty"`
	GreaterOrEqual *leaf  `yaml:"greater_or_equal,omitempty"`
	LessThan       *leaf  `yaml:"less_than,omitempty"`
	LessOrEqual    *leaf  `yaml:"less_or_equal,omitempty"`
}

type leaf struct {
	Attribute string    `yaml:"attribute"`
	Value     yaml.Node `yaml:"value"`
}

// Parse decodes a YAML filter document. An empty document yields a nil
// filter (no filtering).
func Parse(data []byte) (Filter, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one YAML filter document from r.
// Unknown keys are rejected so that typos ("start_with") fail loudly.
func Decode(r io.Reader) (Filter, error) {
	var root node
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse filter YAML: %w", err)
	}
	return root.toFilter("$")
}

// UnmarshalYAML lets a filter be embedded in other YAML documents
// (configuration, scenarios).
func (d *Document) UnmarshalYAML(value *yaml.Node) error {
	var root node
	if err := value.Decode(&root); err != nil {
		return err
	}
	f, err := root.toFilter("$")
	if err != nil {
		return err
	}
	d.Filter = f
	return nil
}

// Document wraps a Filter for use as a YAML field.
type Document struct {
	Filter Filter
}

func (n node) toFilter(path string) (Filter, error) {
	set := 0
	var result Filter
	var err error

	if n.And != nil {
		set++
		result, err = n.fold(path+".and", n.And, AllOf)
	}
	if n.Or != nil {
		set++
		result, err = n.fold(path+".or", n.Or, AnyOf)
	}
	if n.Not != nil {
		set++
		var child Filter
		child, err = n.Not.toFilter(path + ".not")
		result = Not{Filter: child}
	}

	leaves := []struct {
		name string
		leaf *leaf
		make func(attr string, v Value) Filter
	}{
		{"equals", n.Equals, func(a string, v Value) Filter { return Equals{Attribute: a, Value: v} }},
		{"contains", n.Contains, func(a string, v Value) Filter { return Contains{Attribute: a, Value: v} }},
		{"starts_with", n.StartsWith, func(a string, v Value) Filter { return StartsWith{Attribute: a, Value: v} }},
		{"ends_with", n.EndsWith, func(a string, v Value) Filter { return EndsWith{Attribute: a, Value: v} }},
		{"greater_than", n.GreaterThan, func(a string, v Value) Filter { return GreaterThan{Attribute: a, Value: v} }},
		{"greater_or_equal", n.GreaterOrEqual, func(a string, v Value) Filter { return GreaterOrEqual{Attribute: a, Value: v} }},
		{"less_than", n.LessThan, func(a string, v Value) Filter { return LessThan{Attribute: a, Value: v} }},
		{"less_or_equal", n.LessOrEqual, func(a string, v Value) Filter { return LessOrEqual{Attribute: a, Value: v} }},
	}
	for _, l := range leaves {
		if l.leaf == nil {
			continue
		}
		set++
		if l.leaf.Attribute == "" {
			return nil, fmt.Errorf("%s.%s: attribute is required", path, l.name)
		}
		var v Value
		v, err = valueFromNode(&l.leaf.Value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", path, l.name, err)
		}
		result = l.make(l.leaf.Attribute, v)
	}

	if err != nil {
		return nil, err
	}
	switch set {
	case 0:
		return nil, fmt.Errorf("%s: empty filter node", path)
	case 1:
		return result, nil
	default:
		return nil, fmt.Errorf("%s: filter node must have exactly one operator, found %d", path, set)
	}
}

func (n node) fold(path string, children []node, join func(...Filter) Filter) (Filter, error) {
	if len(children) < 2 {
		return nil, fmt.Errorf("%s: needs at least two operands, found %d", path, len(children))
	}
	filters := make([]Filter, 0, len(children))
	for i, child := range children {
		f, err := child.toFilter(fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return join(filters...), nil
}

// valueFromNode maps a YAML scalar to a Value using its resolved tag.
// A missing value decodes to Null.
func valueFromNode(n *yaml.Node) (Value, error) {
	if n.Kind == 0 {
		return Null{}, nil
	}
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("value must be a scalar (line %d)", n.Line)
	}

	switch n.ShortTag() {
	case "!!null":
		return Null{}, nil
	case "!!str":
		return String(n.Value), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", n.Value, err)
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", n.Value, err)
		}
		return Float(f), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("invalid bool %q: %w", n.Value, err)
		}
		return Bool(b), nil
	case "!!binary":
		raw := strings.Join(strings.Fields(n.Value), "")
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid binary value: %w", err)
		}
		return Bytes(data), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", n.Value, err)
		}
		return Time(t), nil
	default:
		return nil, fmt.Errorf("unsupported value tag %s", n.ShortTag())
	}
}
