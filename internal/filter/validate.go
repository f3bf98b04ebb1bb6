package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationResult contains the structural and pushdown analysis of a filter.
//
// Problems are structural defects (nil children, empty attribute names) that
// make the tree unusable. Warnings name leaves that are well formed but
// cannot be evaluated by the remote service; those are dropped from the
// WHERE clause and checked client-side instead.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	Problems []string
	Warnings []string
}

// Err returns the problems as a single error, or nil when the tree is valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return errors.New("invalid filter: " + strings.Join(r.Problems, "; "))
}

// Validate walks the tree and reports structural problems and pushdown
// warnings. A nil filter is valid (no filtering).
//
// Validate is a pure function with no side effects.
func Validate(f Filter) ValidationResult {
	v := &validator{}
	if f != nil {
		v.validate(f, "$")
	}
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
		Warnings: v.warnings,
	}
}

type validator struct {
	problems []string
	warnings []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validate(f Filter, path string) {
	switch n := Unwrap(f).(type) {
	case nil:
		v.addProblem("%s: nil filter node", path)
	case And:
		v.validate(n.Left, path+".and[0]")
		v.validate(n.Right, path+".and[1]")
	case Or:
		v.validate(n.Left, path+".or[0]")
		v.validate(n.Right, path+".or[1]")
	case Not:
		v.validate(n.Filter, path+".not")
	case Equals:
		v.validateLeaf(path+".equals", n.Attribute, n.Value)
	case Contains:
		v.validatePattern(path+".contains", n.Attribute, n.Value)
	case StartsWith:
		v.validatePattern(path+".starts_with", n.Attribute, n.Value)
	case EndsWith:
		v.validatePattern(path+".ends_with", n.Attribute, n.Value)
	case GreaterThan:
		v.validateOrdering(path+".greater_than", n.Attribute, n.Value)
	case GreaterOrEqual:
		v.validateOrdering(path+".greater_or_equal", n.Attribute, n.Value)
	case LessThan:
		v.validateOrdering(path+".less_than", n.Attribute, n.Value)
	case LessOrEqual:
		v.validateOrdering(path+".less_or_equal", n.Attribute, n.Value)
	default:
		v.addProblem("%s: unknown filter type %T", path, f)
	}
}

func (v *validator) validateLeaf(path, attribute string, value Value) {
	if attribute == "" {
		v.addProblem("%s: attribute name is required", path)
	}
	if _, ok := value.(Bytes); ok {
		v.addWarning("%s: binary value on '%s' is evaluated client-side", path, attribute)
	}
}

func (v *validator) validatePattern(path, attribute string, value Value) {
	v.validateLeaf(path, attribute, value)
	if _, ok := value.(String); !ok {
		v.addWarning("%s: non-string value on '%s' is evaluated client-side", path, attribute)
	}
}

func (v *validator) validateOrdering(path, attribute string, value Value) {
	v.validateLeaf(path, attribute, value)
	if IsNull(value) {
		v.addWarning("%s: null comparison on '%s' is evaluated client-side", path, attribute)
	}
}
