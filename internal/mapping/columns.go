package mapping

import (
	"strings"
	"sync"

	"github.com/roach88/sfconnect/internal/soql"
)

// Reserved attribute names.
const (
	UIDAttribute      = "__UID__"
	NameAttribute     = "__NAME__"
	PasswordAttribute = "__PASSWORD__"
)

// Layout names the physical columns backing the reserved attributes.
type Layout struct {
	Unique   string
	Name     string
	Password string
	Active   string
}

// DefaultLayout is the User object layout.
var DefaultLayout = Layout{
	Unique:   "Id",
	Name:     "Username",
	Password: "Password",
	Active:   "IsActive",
}

// Columns resolves attributes to columns and declared types.
//
// Types default to VARCHAR until SetTypes installs the types reported by
// the remote describe call. Columns is safe for concurrent use.
type Columns struct {
	layout Layout

	mu    sync.RWMutex
	types map[string]soql.Type // keyed by lower-cased column name
}

// NewColumns creates a resolver for layout.
func NewColumns(layout Layout) *Columns {
	return &Columns{layout: layout, types: map[string]soql.Type{}}
}

// Layout returns the configured column layout.
func (c *Columns) Layout() Layout {
	return c.layout
}

// Column maps an attribute name to its column name. Reserved names match
// case-insensitively; the password attribute maps only when a password
// column is configured.
func (c *Columns) Column(attribute string) string {
	switch {
	case strings.EqualFold(attribute, NameAttribute):
		return c.layout.Name
	case strings.EqualFold(attribute, UIDAttribute):
		return c.layout.Unique
	case c.layout.Password != "" && strings.EqualFold(attribute, PasswordAttribute):
		return c.layout.Password
	default:
		return attribute
	}
}

// ResolveColumn implements soql.ColumnResolver.
func (c *Columns) ResolveColumn(attribute string) (string, soql.Type) {
	column := c.Column(attribute)
	return column, c.Type(column)
}

// Type returns the declared type of column, VARCHAR when unknown.
func (c *Columns) Type(column string) soql.Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := c.types[strings.ToLower(column)]; ok {
		return t
	}
	return soql.TypeVarChar
}

// SetTypes replaces the known column types.
func (c *Columns) SetTypes(types map[string]soql.Type) {
	m := make(map[string]soql.Type, len(types))
	for column, t := range types {
		m[strings.ToLower(column)] = t
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = m
}

// AttributesToGet builds the select list: the unique and name columns
// always come first, reserved attributes and the password are never
// selected, and duplicates (compared case-insensitively) are removed keeping
// the first occurrence.
func (c *Columns) AttributesToGet(attributes []string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(column string) {
		key := strings.ToLower(column)
		if column == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, column)
	}

	add(c.layout.Unique)
	add(c.layout.Name)
	for _, attr := range attributes {
		switch {
		case strings.EqualFold(attr, UIDAttribute), strings.EqualFold(attr, NameAttribute):
			continue
		case strings.EqualFold(attr, PasswordAttribute):
			continue
		case c.layout.Password != "" && strings.EqualFold(attr, c.layout.Password):
			continue
		}
		add(attr)
	}
	return out
}
