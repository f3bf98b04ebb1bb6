package filter

// Filter is a node of the filter expression tree.
//
// This is a sealed interface - only types in this package implement it.
//
// Boolean nodes:
//   - And: both sides must hold
//   - Or: at least one side must hold
//   - Not: negates its child
//
// Comparison leaves (one attribute, one value):
//   - Equals, Contains, StartsWith, EndsWith
//   - GreaterThan, GreaterOrEqual, LessThan, LessOrEqual
type Filter interface {
	filterNode() // Marker method - seals interface to this package
}

// And is the conjunction of two filters.
type And struct {
	Left  Filter
	Right Filter
}

func (And) filterNode() {}

// Or is the disjunction of two filters.
type Or struct {
	Left  Filter
	Right Filter
}

func (Or) filterNode() {}

// Not negates its child.
type Not struct {
	Filter Filter
}

func (Not) filterNode() {}

// Equals matches records whose attribute equals Value.
// A Null value matches records where the attribute is unset.
type Equals struct {
	Attribute string
	Value     Value
}

func (Equals) filterNode() {}

// Contains matches string attributes containing Value.
type Contains struct {
	Attribute string
	Value     Value
}

func (Contains) filterNode() {}

// StartsWith matches string attributes beginning with Value.
type StartsWith struct {
	Attribute string
	Value     Value
}

func (StartsWith) filterNode() {}

// EndsWith matches string attributes ending with Value.
type EndsWith struct {
	Attribute string
	Value     Value
}

func (EndsWith) filterNode() {}

// GreaterThan matches attribute > Value.
type GreaterThan struct {
	Attribute string
	Value     Value
}

func (GreaterThan) filterNode() {}

// GreaterOrEqual matches attribute >= Value.
type GreaterOrEqual struct {
	Attribute string
	Value     Value
}

func (GreaterOrEqual) filterNode() {}

// LessThan matches attribute < Value.
type LessThan struct {
	Attribute string
	Value     Value
}

func (LessThan) filterNode() {}

// LessOrEqual matches attribute <= Value.
type LessOrEqual struct {
	Attribute string
	Value     Value
}

func (LessOrEqual) filterNode() {}

// AllOf folds filters into a left-leaning chain of And nodes.
// Nil entries are skipped. Returns nil when nothing remains.
func AllOf(filters ...Filter) Filter {
	return fold(filters, func(l, r Filter) Filter { return And{Left: l, Right: r} })
}

// AnyOf folds filters into a left-leaning chain of Or nodes.
// Nil entries are skipped. Returns nil when nothing remains.
func AnyOf(filters ...Filter) Filter {
	return fold(filters, func(l, r Filter) Filter { return Or{Left: l, Right: r} })
}

func fold(filters []Filter, join func(l, r Filter) Filter) Filter {
	var acc Filter
	for _, f := range filters {
		if f == nil {
			continue
		}
		if acc == nil {
			acc = f
			continue
		}
		acc = join(acc, f)
	}
	return acc
}

// Unwrap returns the value form of a node built through pointers.
// Backends call it before switching so that &Equals{} and Equals{} are
// handled identically. A nil pointer unwraps to nil.
func Unwrap(f Filter) Filter {
	switch n := f.(type) {
	case *And:
		if n == nil {
			return nil
		}
		return *n
	case *Or:
		if n == nil {
			return nil
		}
		return *n
	case *Not:
		if n == nil {
			return nil
		}
		return *n
	case *Equals:
		if n == nil {
			return nil
		}
		return *n
	case *Contains:
		if n == nil {
			return nil
		}
		return *n
	case *StartsWith:
		if n == nil {
			return nil
		}
		return *n
	case *EndsWith:
		if n == nil {
			return nil
		}
		return *n
	case *GreaterThan:
		if n == nil {
			return nil
		}
		return *n
	case *GreaterOrEqual:
		if n == nil {
			return nil
		}
		return *n
	case *LessThan:
		if n == nil {
			return nil
		}
		return *n
	case *LessOrEqual:
		if n == nil {
			return nil
		}
		return *n
	default:
		return f
	}
}

// Leaf returns the attribute and value of a comparison leaf.
// ok is false for boolean nodes.
func Leaf(f Filter) (attribute string, value Value, ok bool) {
	switch n := Unwrap(f).(type) {
	case Equals:
		return n.Attribute, n.Value, true
	case Contains:
		return n.Attribute, n.Value, true
	case StartsWith:
		return n.Attribute, n.Value, true
	case EndsWith:
		return n.Attribute, n.Value, true
	case GreaterThan:
		return n.Attribute, n.Value, true
	case GreaterOrEqual:
		return n.Attribute, n.Value, true
	case LessThan:
		return n.Attribute, n.Value, true
	case LessOrEqual:
		return n.Attribute, n.Value, true
	default:
		return "", nil, false
	}
}

// Attributes lists the attributes compared anywhere in f, in order of
// first use and without duplicates.
func Attributes(f Filter) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(Filter)
	walk = func(f Filter) {
		switch n := Unwrap(f).(type) {
		case nil:
		case And:
			walk(n.Left)
			walk(n.Right)
		case Or:
			walk(n.Left)
			walk(n.Right)
		case Not:
			walk(n.Filter)
		default:
			if attr, _, ok := Leaf(n); ok && !seen[attr] {
				seen[attr] = true
				out = append(out, attr)
			}
		}
	}
	walk(f)
	return out
}
