package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/sfconnect/internal/filter"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Output   Output // Full translation for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nTranslation:\n")
	fmt.Fprintf(&buf, "  where: %q (complete=%t)\n", e.Output.Where, e.Output.Complete)
	fmt.Fprintf(&buf, "  query: %s\n", e.Output.Query)

	return buf.String()
}

func (h *Harness) evaluate(scenario *Scenario, out Output, a Assertion) error {
	switch a.Type {
	case AssertWhere:
		return assertText(a.Type, a.Value, out.Where, out)
	case AssertQuery:
		return assertText(a.Type, a.Value, out.Query, out)
	case AssertEncoded:
		return assertText(a.Type, a.Value, out.Encoded, out)
	case AssertComplete:
		return assertFlag(a.Type, *a.Want, out.Complete, out)
	case AssertMatches:
		obj := h.columns.ToObject(a.Record)
		got := filter.Matches(scenario.Filter.Filter, h.columns.Lookup(obj))
		return assertFlag(a.Type, *a.Want, got, out)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertText(typ, want, got string, out Output) error {
	if want == got {
		return nil
	}
	return &AssertionError{Type: typ, Expected: fmt.Sprintf("%q", want), Actual: fmt.Sprintf("%q", got), Output: out}
}

func assertFlag(typ string, want, got bool, out Output) error {
	if want == got {
		return nil
	}
	return &AssertionError{Type: typ, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got), Output: out}
}
