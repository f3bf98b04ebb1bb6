package soql

import (
	"fmt"
	"strings"
)

// Where accumulates the text of one WHERE fragment.
//
// Compound is set only by Join. A parent Join brackets a child fragment iff
// the child is compound, so plain comparisons are never bracketed and
// boolean precedence is kept without a full printer.
type Where struct {
	text     strings.Builder
	compound bool
}

// NewWhere returns an empty fragment.
func NewWhere() *Where {
	return &Where{}
}

// Not prefixes the fragment with "NOT ".
func (w *Where) Not() {
	w.text.WriteString("NOT ")
}

// Bind appends "<column> <operator> <literal>". The literal is single
// quoted when the declared type is string-like, otherwise written as-is.
// Literal values are not escaped.
func (w *Where) Bind(param *Param, operator string) error {
	if param == nil {
		return fmt.Errorf("%w: nil param is not supported", ErrInvalidArgument)
	}
	w.text.WriteString(param.Name())
	w.text.WriteString(" ")
	w.text.WriteString(operator)
	w.text.WriteString(" ")

	if param.Type().IsStringLike() {
		w.text.WriteString("'")
		w.text.WriteString(literalText(param.Value()))
		w.text.WriteString("'")
		return nil
	}
	w.text.WriteString(literalText(param.Value()))
	return nil
}

// IsNull appends "<column> IS NULL".
func (w *Where) IsNull(column string) {
	w.text.WriteString(column)
	w.text.WriteString(" IS NULL")
}

// Join returns "<left> <operator> <right>", bracketing either side that is
// itself a join. The result is compound.
func Join(operator string, left, right *Where) *Where {
	w := &Where{compound: true}
	w.appendOperand(left)
	w.text.WriteString(" ")
	w.text.WriteString(operator)
	w.text.WriteString(" ")
	w.appendOperand(right)
	return w
}

func (w *Where) appendOperand(operand *Where) {
	if operand.compound {
		w.text.WriteString("( ")
		w.text.WriteString(operand.String())
		w.text.WriteString(" )")
		return
	}
	w.text.WriteString(operand.String())
}

// Compound reports whether the fragment is an AND/OR join.
func (w *Where) Compound() bool {
	return w.compound
}

// String returns the accumulated clause text.
func (w *Where) String() string {
	if w == nil {
		return ""
	}
	return w.text.String()
}
