package soql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParam(t *testing.T, name string, value any, typ Type) *Param {
	t.Helper()
	p, err := NewParam(name, value, typ)
	require.NoError(t, err)
	return p
}

func leaf(t *testing.T, name string, value any, typ Type, op string) *Where {
	t.Helper()
	w := NewWhere()
	require.NoError(t, w.Bind(mustParam(t, name, value, typ), op))
	return w
}

func TestWhere_BindQuotesStringLike(t *testing.T) {
	assert.Equal(t, "Username = 'bob'", leaf(t, "Username", "bob", TypeVarChar, "=").String())
	assert.Equal(t, "Age > 30", leaf(t, "Age", int64(30), TypeInteger, ">").String())
	assert.Equal(t, "IsActive = true", leaf(t, "IsActive", true, TypeBoolean, "=").String())
	assert.Equal(t, "Age = '30'", leaf(t, "Age", int64(30), TypeVarChar, "=").String(),
		"declared type, not value kind, decides quoting")
}

func TestWhere_BindNilParam(t *testing.T) {
	err := NewWhere().Bind(nil, "=")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// Literal values are bound verbatim: embedded quotes are not escaped.
func TestWhere_BindDoesNotEscape(t *testing.T) {
	w := leaf(t, "LastName", "O'Brien", TypeVarChar, "=")
	assert.Equal(t, "LastName = 'O'Brien'", w.String())
}

func TestWhere_IsNull(t *testing.T) {
	w := NewWhere()
	w.IsNull("Status")
	assert.Equal(t, "Status IS NULL", w.String())
	assert.False(t, w.Compound())
}

func TestJoin_BracketsOnlyCompoundOperands(t *testing.T) {
	a := func() *Where { return leaf(t, "A", int64(1), TypeInteger, "=") }
	b := func() *Where { return leaf(t, "B", int64(2), TypeInteger, "=") }

	testCases := []struct {
		name  string
		build func() *Where
		want  string
	}{
		{"two leaves", func() *Where { return Join("AND", a(), b()) }, "A = 1 AND B = 2"},
		{"compound left", func() *Where { return Join("OR", Join("AND", a(), b()), a()) }, "( A = 1 AND B = 2 ) OR A = 1"},
		{"compound right", func() *Where { return Join("AND", a(), Join("OR", a(), b())) }, "A = 1 AND ( A = 1 OR B = 2 )"},
		{"both compound", func() *Where {
			return Join("OR", Join("AND", a(), b()), Join("AND", b(), a()))
		}, "( A = 1 AND B = 2 ) OR ( B = 2 AND A = 1 )"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := tc.build()
			assert.Equal(t, tc.want, w.String())
			assert.True(t, w.Compound())
			assert.Equal(t, strings.Count(w.String(), "("), strings.Count(w.String(), ")"))
		})
	}
}

func TestWhere_NilString(t *testing.T) {
	var w *Where
	assert.Equal(t, "", w.String())
}
