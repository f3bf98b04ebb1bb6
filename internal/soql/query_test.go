package soql

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sfconnect/internal/filter"
)

func TestBuildQuery_Scenarios(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	testCases := []struct {
		name    string
		columns []string
		filter  filter.Filter
	}{
		{
			name:    "equals_username",
			columns: []string{"Id", "Username"},
			filter:  str("__NAME__", "bob"),
		},
		{
			name:    "starts_with_and_greater_than",
			columns: []string{"Id", "Name", "Age"},
			filter: filter.And{
				Left:  filter.StartsWith{Attribute: "Name", Value: filter.String("A")},
				Right: filter.GreaterThan{Attribute: "Age", Value: filter.Int(30)},
			},
		},
		{
			name:    "null_or_less_than",
			columns: []string{"Id", "Status", "Age"},
			filter: filter.Or{
				Left:  filter.Equals{Attribute: "Status", Value: filter.Null{}},
				Right: filter.LessThan{Attribute: "Age", Value: filter.Int(18)},
			},
		},
		{
			name:    "or_of_ands",
			columns: []string{"Id"},
			filter: filter.Or{
				Left:  filter.And{Left: str("A", "1"), Right: str("B", "2")},
				Right: filter.And{Left: str("C", "3"), Right: str("D", "4")},
			},
		},
		{
			name:    "no_filter",
			columns: []string{"Id", "Username"},
		},
	}

	c := NewCompiler(testColumns)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := BuildQuery("User", tc.columns, c.CompileWhere(tc.filter))
			require.NoError(t, err)
			g.Assert(t, tc.name, []byte(q))
		})
	}
}

func TestBuildQuery_InvalidArguments(t *testing.T) {
	_, err := BuildQuery("", []string{"Id"}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = BuildQuery("User", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEncodeQuery(t *testing.T) {
	q := "SELECT+Id,Username+from+User+WHERE+Name LIKE 'A%' AND Age > 30"
	assert.Equal(t,
		"SELECT+Id%2CUsername+from+User+WHERE+Name+LIKE+%27A%25%27+AND+Age+%3E+30",
		EncodeQuery(q))
}
