package harness

import (
	"fmt"

	"github.com/roach88/sfconnect/internal/config"
	"github.com/roach88/sfconnect/internal/mapping"
	"github.com/roach88/sfconnect/internal/soql"
)

// Harness compiles scenarios against a fresh column resolver each.
type Harness struct {
	columns  *mapping.Columns
	compiler *soql.Compiler
}

func newHarness(scenario *Scenario) *Harness {
	columns := mapping.NewColumns(mapping.DefaultLayout)
	types := make(map[string]soql.Type, len(scenario.Columns))
	for column, tag := range scenario.Columns {
		typ, _ := soql.ParseType(tag)
		types[column] = typ
	}
	columns.SetTypes(types)

	var opts []soql.CompilerOption
	if scenario.StrictBooleans {
		opts = append(opts, soql.WithStrictBooleans())
	}
	return &Harness{columns: columns, compiler: soql.NewCompiler(columns, opts...)}
}

// Run compiles the scenario's filter and evaluates its assertions.
//
// Execution flow:
// 1. Build a column resolver from the declared column types
// 2. Translate the filter to a WHERE clause
// 3. Build and encode the query
// 4. Evaluate assertions against the output
func Run(scenario *Scenario) (*Result, error) {
	h := newHarness(scenario)

	out, err := h.compile(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Output = out
	for i, assertion := range scenario.Assertions {
		if err := h.evaluate(scenario, out, assertion); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

func (h *Harness) compile(scenario *Scenario) (Output, error) {
	objectType := scenario.ObjectType
	if objectType == "" {
		objectType = config.DefaultObjectType
	}

	tr := h.compiler.Translate(scenario.Filter.Filter)
	query, err := soql.BuildQuery(objectType, h.columns.AttributesToGet(scenario.Attributes), tr.Where)
	if err != nil {
		return Output{}, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	out := Output{
		Complete: tr.Complete,
		Query:    query,
		Encoded:  soql.EncodeQuery(query),
	}
	if tr.Where != nil {
		out.Where = tr.Where.String()
	}
	return out, nil
}
