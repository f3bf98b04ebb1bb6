package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sfconnect/internal/filter"
)

func TestRun_Scenarios(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_ReportsFailures(t *testing.T) {
	yes := true
	s := &Scenario{
		Name:        "wrong",
		Description: "expectations that do not hold",
		Filter:      filter.Document{Filter: filter.Equals{Attribute: "Username", Value: filter.String("bob")}},
		Assertions: []Assertion{
			{Type: AssertWhere, Value: "Username = 'alice'"},
			{Type: AssertComplete, Want: &yes},
			{Type: AssertMatches, Want: &yes, Record: map[string]any{"Username": "carol"}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], `Expected: "Username = 'alice'"`)
	assert.Contains(t, result.Errors[0], `Actual: "Username = 'bob'"`)
	assert.Contains(t, result.Errors[1], "assertions[2]")
	assert.Equal(t, "Username = 'bob'", result.Output.Where)
}

func TestRun_ObjectType(t *testing.T) {
	s := &Scenario{
		Name:        "group",
		Description: "custom object type",
		ObjectType:  "Group",
		Assertions:  []Assertion{{Type: AssertQuery, Value: "SELECT+Id,Username+from+Group"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertionError(t *testing.T) {
	err := assertText(AssertWhere, "a", "b", Output{Where: "b", Query: "SELECT+Id+from+User"})

	var aerr *AssertionError
	require.True(t, errors.As(err, &aerr))
	assert.Contains(t, err.Error(), "Assertion failed: where")
	assert.Contains(t, err.Error(), "query: SELECT+Id+from+User")

	assert.NoError(t, assertFlag(AssertComplete, true, true, Output{}))
}
