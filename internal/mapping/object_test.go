package mapping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sfconnect/internal/filter"
)

func TestColumns_ToObject(t *testing.T) {
	c := NewColumns(DefaultLayout)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"attributes": {"type": "User", "url": "/services/data/v27.0/sobjects/User/005A"},
		"Id": "005A",
		"Username": "bob@example.com",
		"Email": "bob@example.com",
		"Department": "",
		"Title": null,
		"IsActive": true,
		"Age": 42,
		"Tags": ["a", "b"]
	}`), &record))

	obj := c.ToObject(record)
	assert.Equal(t, "005A", obj.UID)
	assert.Equal(t, "bob@example.com", obj.Name)
	assert.Equal(t, map[string]any{
		"Email":    "bob@example.com",
		"IsActive": true,
		"Age":      float64(42),
		"Tags":     []any{"a", "b"},
	}, obj.Attributes)
	assert.Equal(t, []string{"Age", "Email", "IsActive", "Tags"}, obj.Keys())
}

func TestColumns_LookupDrivesMatches(t *testing.T) {
	c := NewColumns(DefaultLayout)
	obj := Object{UID: "005A", Name: "bob", Attributes: map[string]any{"Age": float64(42)}}
	lookup := c.Lookup(obj)

	v, ok := lookup("__NAME__")
	assert.True(t, ok)
	assert.Equal(t, "bob", v)

	v, ok = lookup("Username")
	assert.True(t, ok)
	assert.Equal(t, "bob", v)

	v, ok = lookup("__UID__")
	assert.True(t, ok)
	assert.Equal(t, "005A", v)

	_, ok = lookup("Missing")
	assert.False(t, ok)

	f := filter.And{
		Left:  filter.Equals{Attribute: "__NAME__", Value: filter.String("BOB")},
		Right: filter.GreaterThan{Attribute: "Age", Value: filter.Int(40)},
	}
	assert.True(t, filter.Matches(f, lookup))
}

func TestColumns_LookupIgnoresColumnCase(t *testing.T) {
	c := NewColumns(DefaultLayout)
	obj := Object{UID: "005A", Name: "bob@example.com", Attributes: map[string]any{"Title": "Engineer"}}
	lookup := c.Lookup(obj)

	testCases := []struct {
		name      string
		attribute string
		want      any
	}{
		{"name column lower case", "username", "bob@example.com"},
		{"unique column upper case", "ID", "005A"},
		{"reserved name lower case", "__name__", "bob@example.com"},
		{"ordinary attribute lower case", "title", "Engineer"},
		{"ordinary attribute exact case", "Title", "Engineer"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, ok := lookup(tc.attribute)
			assert.True(t, ok)
			assert.Equal(t, tc.want, v)
		})
	}

	assert.True(t, filter.Matches(filter.Equals{Attribute: "username", Value: filter.String("bob@example.com")}, lookup))
	assert.True(t, filter.Matches(filter.Equals{Attribute: "title", Value: filter.String("engineer")}, lookup))
}
