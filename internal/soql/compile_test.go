package soql

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sfconnect/internal/filter"
)

// testColumns resolves the reserved identity attributes and types a few
// columns; everything else is VARCHAR.
var testColumns = ColumnResolverFunc(func(attribute string) (string, Type) {
	switch attribute {
	case "__UID__":
		return "Id", TypeVarChar
	case "__NAME__":
		return "Username", TypeVarChar
	case "Age":
		return "Age", TypeInteger
	case "IsActive":
		return "IsActive", TypeBoolean
	case "Photo":
		return "Photo", TypeBlob
	default:
		return attribute, TypeVarChar
	}
})

func str(attr, v string) filter.Equals {
	return filter.Equals{Attribute: attr, Value: filter.String(v)}
}

func compile(t *testing.T, f filter.Filter, opts ...CompilerOption) Translation {
	t.Helper()
	return NewCompiler(testColumns, opts...).Translate(f)
}

func TestTranslate_Leaves(t *testing.T) {
	testCases := []struct {
		name   string
		filter filter.Filter
		want   string
	}{
		{"equals string", str("Email", "a@x.com"), "Email = 'a@x.com'"},
		{"equals reserved name", str("__NAME__", "bob"), "Username = 'bob'"},
		{"equals reserved uid", str("__UID__", "005A"), "Id = '005A'"},
		{"equals integer", filter.Equals{Attribute: "Age", Value: filter.Int(30)}, "Age = 30"},
		{"equals bool", filter.Equals{Attribute: "IsActive", Value: filter.Bool(true)}, "IsActive = true"},
		{"equals null", filter.Equals{Attribute: "Status", Value: filter.Null{}}, "Status IS NULL"},
		{"equals nil value", filter.Equals{Attribute: "Status"}, "Status IS NULL"},
		{"contains", filter.Contains{Attribute: "Name", Value: filter.String("li")}, "Name LIKE '%li%'"},
		{"starts with", filter.StartsWith{Attribute: "Name", Value: filter.String("A")}, "Name LIKE 'A%'"},
		{"ends with", filter.EndsWith{Attribute: "Name", Value: filter.String("z")}, "Name LIKE '%z'"},
		{"greater than", filter.GreaterThan{Attribute: "Age", Value: filter.Int(30)}, "Age > 30"},
		{"greater or equal", filter.GreaterOrEqual{Attribute: "Age", Value: filter.Int(30)}, "Age >= 30"},
		{"less than", filter.LessThan{Attribute: "Age", Value: filter.Int(18)}, "Age < 18"},
		{"less or equal", filter.LessOrEqual{Attribute: "Age", Value: filter.Int(18)}, "Age <= 18"},
		{"pointer leaf", &filter.Equals{Attribute: "Email", Value: filter.String("p")}, "Email = 'p'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := compile(t, tc.filter)
			require.NotNil(t, tr.Where)
			assert.Equal(t, tc.want, tr.Where.String())
			assert.True(t, tr.Complete)
		})
	}
}

func TestTranslate_NilFilter(t *testing.T) {
	tr := compile(t, nil)
	assert.Nil(t, tr.Where)
	assert.True(t, tr.Complete)
}

func TestTranslate_TimeLiteral(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := compile(t, filter.GreaterThan{Attribute: "CreatedDate", Value: filter.Time(ts)})
	require.NotNil(t, tr.Where)
	assert.Equal(t, "CreatedDate > '2024-03-01T12:00:00Z'", tr.Where.String())
}

func TestTranslate_NegatedLeaves(t *testing.T) {
	testCases := []struct {
		name   string
		filter filter.Filter
		want   string
	}{
		{"not equals", filter.Not{Filter: str("Email", "x")}, "NOT Email = 'x'"},
		{"not null", filter.Not{Filter: filter.Equals{Attribute: "Status", Value: filter.Null{}}}, "NOT Status IS NULL"},
		{"not contains", filter.Not{Filter: filter.Contains{Attribute: "Name", Value: filter.String("a")}}, "NOT Name LIKE '%a%'"},
		{"not greater than", filter.Not{Filter: filter.GreaterThan{Attribute: "Age", Value: filter.Int(1)}}, "Age <= 1"},
		{"not greater or equal", filter.Not{Filter: filter.GreaterOrEqual{Attribute: "Age", Value: filter.Int(1)}}, "Age < 1"},
		{"not less than", filter.Not{Filter: filter.LessThan{Attribute: "Age", Value: filter.Int(1)}}, "Age >= 1"},
		{"not less or equal", filter.Not{Filter: filter.LessOrEqual{Attribute: "Age", Value: filter.Int(1)}}, "Age > 1"},
		{"double negation", filter.Not{Filter: filter.Not{Filter: str("Email", "x")}}, "Email = 'x'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := compile(t, tc.filter)
			require.NotNil(t, tr.Where)
			assert.Equal(t, tc.want, tr.Where.String())
			assert.True(t, tr.Complete)
		})
	}
}

func TestTranslate_NotPushedThroughBooleans(t *testing.T) {
	f := filter.Not{Filter: filter.And{
		Left:  str("Email", "x"),
		Right: filter.GreaterThan{Attribute: "Age", Value: filter.Int(30)},
	}}
	tr := compile(t, f)
	require.NotNil(t, tr.Where)
	assert.Equal(t, "NOT Email = 'x' OR Age <= 30", tr.Where.String())

	f2 := filter.Not{Filter: filter.Or{
		Left:  str("Email", "x"),
		Right: filter.LessThan{Attribute: "Age", Value: filter.Int(18)},
	}}
	tr = compile(t, f2)
	require.NotNil(t, tr.Where)
	assert.Equal(t, "NOT Email = 'x' AND Age >= 18", tr.Where.String())
}

func TestTranslate_WildcardsAreNotDoubled(t *testing.T) {
	testCases := []struct {
		name   string
		filter filter.Filter
		want   string
	}{
		{"contains with both", filter.Contains{Attribute: "Name", Value: filter.String("%li%")}, "Name LIKE '%li%'"},
		{"contains with leading", filter.Contains{Attribute: "Name", Value: filter.String("%li")}, "Name LIKE '%li%'"},
		{"starts with trailing", filter.StartsWith{Attribute: "Name", Value: filter.String("A%")}, "Name LIKE 'A%'"},
		{"ends with leading", filter.EndsWith{Attribute: "Name", Value: filter.String("%z")}, "Name LIKE '%z'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := compile(t, tc.filter)
			require.NotNil(t, tr.Where)
			assert.Equal(t, tc.want, tr.Where.String())
		})
	}
}

func TestTranslate_Untranslatable(t *testing.T) {
	testCases := []struct {
		name   string
		filter filter.Filter
	}{
		{"binary value", filter.Equals{Attribute: "Email", Value: filter.Bytes{0x01}}},
		{"binary column", str("Photo", "abc")},
		{"ordering against null", filter.GreaterThan{Attribute: "Age", Value: filter.Null{}}},
		{"like with non-string", filter.Contains{Attribute: "Age", Value: filter.Int(3)}},
		{"nil pointer", (*filter.Equals)(nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := compile(t, tc.filter)
			assert.Nil(t, tr.Where)
			assert.False(t, tr.Complete)
		})
	}
}

func TestTranslate_JoinParenthesization(t *testing.T) {
	a, b := str("A", "1"), str("B", "2")
	c, d := str("C", "3"), str("D", "4")

	testCases := []struct {
		name   string
		filter filter.Filter
		want   string
	}{
		{"flat and", filter.And{Left: a, Right: b}, "A = '1' AND B = '2'"},
		{"or of ands", filter.Or{Left: filter.And{Left: a, Right: b}, Right: filter.And{Left: c, Right: d}},
			"( A = '1' AND B = '2' ) OR ( C = '3' AND D = '4' )"},
		{"and of or", filter.And{Left: filter.Or{Left: a, Right: b}, Right: c},
			"( A = '1' OR B = '2' ) AND C = '3'"},
		{"left-leaning chain", filter.AllOf(a, b, c), "( A = '1' AND B = '2' ) AND C = '3'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := compile(t, tc.filter)
			require.NotNil(t, tr.Where)
			assert.Equal(t, tc.want, tr.Where.String())
			assert.True(t, tr.Complete)
		})
	}
}

// Under the default policy an AND keeps its translatable side while an OR
// with an untranslatable side is dropped. Either way the remote result is a
// superset and the translation reports itself incomplete.
func TestTranslate_PartialAndPolicy(t *testing.T) {
	bad := filter.Equals{Attribute: "Photo", Value: filter.Bytes{1}}
	good := str("Email", "x")

	tr := compile(t, filter.And{Left: good, Right: bad})
	require.NotNil(t, tr.Where)
	assert.Equal(t, "Email = 'x'", tr.Where.String())
	assert.False(t, tr.Complete)

	tr = compile(t, filter.And{Left: bad, Right: good})
	require.NotNil(t, tr.Where)
	assert.Equal(t, "Email = 'x'", tr.Where.String())
	assert.False(t, tr.Complete)

	tr = compile(t, filter.Or{Left: good, Right: bad})
	assert.Nil(t, tr.Where)
	assert.False(t, tr.Complete)

	// NOT(OR(good, bad)) is AND(NOT good, NOT bad): the AND keeps NOT good.
	tr = compile(t, filter.Not{Filter: filter.Or{Left: good, Right: bad}})
	require.NotNil(t, tr.Where)
	assert.Equal(t, "NOT Email = 'x'", tr.Where.String())
	assert.False(t, tr.Complete)

	// NOT(AND(good, bad)) is OR(NOT good, NOT bad): dropped.
	tr = compile(t, filter.Not{Filter: filter.And{Left: good, Right: bad}})
	assert.Nil(t, tr.Where)
}

func TestTranslate_StrictBooleansPolicy(t *testing.T) {
	bad := filter.Equals{Attribute: "Photo", Value: filter.Bytes{1}}
	good := str("Email", "x")

	tr := compile(t, filter.And{Left: good, Right: bad}, WithStrictBooleans())
	assert.Nil(t, tr.Where)
	assert.False(t, tr.Complete)

	tr = compile(t, filter.Or{Left: good, Right: bad}, WithBooleanPolicy(StrictBooleans))
	assert.Nil(t, tr.Where)

	tr = compile(t, filter.And{Left: good, Right: str("B", "2")}, WithStrictBooleans())
	require.NotNil(t, tr.Where)
	assert.Equal(t, "Email = 'x' AND B = '2'", tr.Where.String())
	assert.True(t, tr.Complete)
}

func TestTranslate_NormalizesStringsToNFC(t *testing.T) {
	tr := compile(t, str("FirstName", "Jose\u0301"))
	require.NotNil(t, tr.Where)
	assert.Equal(t, "FirstName = 'Jos\u00e9'", tr.Where.String())
}

func TestTranslate_DoesNotEscapeQuotes(t *testing.T) {
	tr := compile(t, str("LastName", "O'Brien"))
	require.NotNil(t, tr.Where)
	assert.Equal(t, "LastName = 'O'Brien'", tr.Where.String())
}

func TestTranslate_BracketsBalanced(t *testing.T) {
	leaves := []filter.Filter{str("A", "1"), str("B", "2"), str("C", "3"), str("D", "4")}
	f := filter.AnyOf(filter.AllOf(leaves[0], leaves[1]), filter.AllOf(leaves[2], filter.AnyOf(leaves[3], leaves[0])))
	tr := compile(t, f)
	require.NotNil(t, tr.Where)
	s := tr.Where.String()
	assert.Equal(t, strings.Count(s, "("), strings.Count(s, ")"))
	assert.Equal(t, "( A = '1' AND B = '2' ) OR ( C = '3' AND ( D = '4' OR A = '1' ) )", s)
}

func TestCompiler_ConcurrentUse(t *testing.T) {
	c := NewCompiler(testColumns)
	f := filter.And{Left: str("Email", "x"), Right: filter.GreaterThan{Attribute: "Age", Value: filter.Int(1)}}

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.CompileWhere(f).String()
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "Email = 'x' AND Age > 1", r)
	}
}
