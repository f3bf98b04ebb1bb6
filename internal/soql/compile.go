package soql

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/sfconnect/internal/filter"
)

// ColumnResolver maps a logical attribute name to the remote column name and
// its declared type. Reserved attributes (identity, display name, password)
// resolve to their configured columns.
type ColumnResolver interface {
	ResolveColumn(attribute string) (column string, typ Type)
}

// ColumnResolverFunc adapts a function to ColumnResolver.
type ColumnResolverFunc func(attribute string) (string, Type)

// ResolveColumn calls f.
func (f ColumnResolverFunc) ResolveColumn(attribute string) (string, Type) {
	return f(attribute)
}

// BooleanPolicy decides what an AND/OR node compiles to when one of its
// children has no translation.
type BooleanPolicy int

const (
	// PartialAnd keeps the translatable side of an AND and drops an OR
	// entirely. Both widen the result set, never narrow it.
	PartialAnd BooleanPolicy = iota

	// StrictBooleans drops any AND/OR node with an untranslatable child.
	StrictBooleans
)

// Compiler translates filter trees into WHERE clauses.
//
// Compiler is stateless apart from its configuration and is safe for
// concurrent use.
type Compiler struct {
	columns ColumnResolver
	policy  BooleanPolicy
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithStrictBooleans selects the StrictBooleans policy.
func WithStrictBooleans() CompilerOption {
	return func(c *Compiler) {
		c.policy = StrictBooleans
	}
}

// WithBooleanPolicy sets the boolean degrade policy.
func WithBooleanPolicy(policy BooleanPolicy) CompilerOption {
	return func(c *Compiler) {
		c.policy = policy
	}
}

// NewCompiler creates a Compiler resolving columns through columns.
// The default policy is PartialAnd.
func NewCompiler(columns ColumnResolver, opts ...CompilerOption) *Compiler {
	c := &Compiler{columns: columns, policy: PartialAnd}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Translation is the outcome of compiling one filter tree.
type Translation struct {
	// Where is the clause, or nil when nothing could be translated.
	Where *Where

	// Complete is true when Where expresses the whole filter. When false the
	// remote result set is wider than the filter and callers must check
	// records client-side.
	Complete bool
}

// Translate compiles f. A nil filter yields a nil clause that is complete.
func (c *Compiler) Translate(f filter.Filter) Translation {
	if f == nil {
		return Translation{Complete: true}
	}
	t := &translation{compiler: c, complete: true}
	where := t.visit(f, false)
	return Translation{Where: where, Complete: t.complete && where != nil}
}

// CompileWhere compiles f and returns only the clause (nil = no filter).
func (c *Compiler) CompileWhere(f filter.Filter) *Where {
	return c.Translate(f).Where
}

// translation carries per-call state for one Translate.
type translation struct {
	compiler *Compiler
	complete bool
}

// drop records that part of the tree has no translation.
func (t *translation) drop() *Where {
	t.complete = false
	return nil
}

// visit compiles one node. not is the negation inherited from enclosing Not
// nodes; it is pushed through AND/OR with De Morgan's laws.
func (t *translation) visit(f filter.Filter, not bool) *Where {
	switch n := filter.Unwrap(f).(type) {
	case filter.And:
		left, right := t.visit(n.Left, not), t.visit(n.Right, not)
		if not {
			return t.or(left, right)
		}
		return t.and(left, right)
	case filter.Or:
		left, right := t.visit(n.Left, not), t.visit(n.Right, not)
		if not {
			return t.and(left, right)
		}
		return t.or(left, right)
	case filter.Not:
		return t.visit(n.Filter, !not)
	case filter.Equals:
		return t.equals(n.Attribute, n.Value, not)
	case filter.Contains:
		return t.like(n.Attribute, n.Value, not, true, true)
	case filter.StartsWith:
		return t.like(n.Attribute, n.Value, not, false, true)
	case filter.EndsWith:
		return t.like(n.Attribute, n.Value, not, true, false)
	case filter.GreaterThan:
		return t.compare(n.Attribute, n.Value, not, ">")
	case filter.GreaterOrEqual:
		return t.compare(n.Attribute, n.Value, not, ">=")
	case filter.LessThan:
		return t.compare(n.Attribute, n.Value, not, "<")
	case filter.LessOrEqual:
		return t.compare(n.Attribute, n.Value, not, "<=")
	default:
		return t.drop()
	}
}

func (t *translation) and(left, right *Where) *Where {
	switch {
	case left != nil && right != nil:
		return Join("AND", left, right)
	case t.compiler.policy == StrictBooleans:
		return nil
	case left != nil:
		return left
	default:
		return right
	}
}

func (t *translation) or(left, right *Where) *Where {
	if left == nil || right == nil {
		return nil
	}
	return Join("OR", left, right)
}

// param resolves the column for attribute and builds the bound parameter.
// Binary values and binary columns have no translation.
func (t *translation) param(attribute string, value filter.Value) *Param {
	if _, isBinary := value.(filter.Bytes); isBinary {
		return nil
	}
	column, typ := t.compiler.columns.ResolveColumn(attribute)
	if typ.IsBinary() {
		return nil
	}
	native := filter.Native(value)
	if s, ok := native.(string); ok {
		native = norm.NFC.String(s)
	}
	p, err := NewParam(column, native, typ)
	if err != nil {
		return nil
	}
	return p
}

func (t *translation) equals(attribute string, value filter.Value, not bool) *Where {
	p := t.param(attribute, value)
	if p == nil {
		return t.drop()
	}
	w := NewWhere()
	if not {
		w.Not()
	}
	if p.Value() == nil {
		w.IsNull(p.Name())
		return w
	}
	if err := w.Bind(p, "="); err != nil {
		return t.drop()
	}
	return w
}

// like binds a LIKE pattern, adding a leading and/or trailing % wildcard
// unless the value already carries one.
func (t *translation) like(attribute string, value filter.Value, not, leading, trailing bool) *Where {
	if _, ok := value.(filter.String); !ok {
		return t.drop()
	}
	p := t.param(attribute, value)
	if p == nil {
		return t.drop()
	}

	pattern := p.Value().(string)
	if leading && !strings.HasPrefix(pattern, "%") {
		pattern = "%" + pattern
	}
	if trailing && !strings.HasSuffix(pattern, "%") {
		pattern = pattern + "%"
	}
	wildcarded, err := NewParam(p.Name(), pattern, p.Type())
	if err != nil {
		return t.drop()
	}

	w := NewWhere()
	if not {
		w.Not()
	}
	if err := w.Bind(wildcarded, "LIKE"); err != nil {
		return t.drop()
	}
	return w
}

// negated maps an ordering operator to its negation.
var negated = map[string]string{
	">":  "<=",
	">=": "<",
	"<":  ">=",
	"<=": ">",
}

func (t *translation) compare(attribute string, value filter.Value, not bool, operator string) *Where {
	if filter.IsNull(value) {
		return t.drop()
	}
	p := t.param(attribute, value)
	if p == nil {
		return t.drop()
	}
	if not {
		operator = negated[operator]
	}
	w := NewWhere()
	if err := w.Bind(p, operator); err != nil {
		return t.drop()
	}
	return w
}
