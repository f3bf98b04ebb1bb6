package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-sqlite3"
)

const userTable = "User"

var (
	// ErrDuplicateUsername reports a unique constraint violation on Username.
	ErrDuplicateUsername = errors.New("duplicate username")

	// ErrNotFound reports an unknown record id.
	ErrNotFound = errors.New("record not found")
)

// FieldError reports a request naming a column the table does not have.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("No such column '%s' on entity '%s'", e.Field, userTable)
}

// Column describes one table column, from PRAGMA table_info.
type Column struct {
	Name    string
	Type    string
	NotNull bool
	Primary bool
	Default bool
}

// Columns returns the User table columns in declaration order.
func (s *Store) Columns(ctx context.Context) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info("User")`)
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid     int
			col     Column
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		col.NotNull = notNull != 0
		col.Primary = pk != 0
		col.Default = dflt != nil
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// canonical maps requested names to the table's columns,
// case-insensitively. Unknown names fail with *FieldError.
func (s *Store) canonical(ctx context.Context, names []string) ([]Column, error) {
	cols, err := s.Columns(ctx)
	if err != nil {
		return nil, err
	}
	byLower := make(map[string]Column, len(cols))
	for _, c := range cols {
		byLower[strings.ToLower(c.Name)] = c
	}

	out := make([]Column, len(names))
	for i, name := range names {
		col, ok := byLower[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, &FieldError{Field: strings.TrimSpace(name)}
		}
		out[i] = col
	}
	return out, nil
}

// sortedFields returns the keys of fields sorted, for stable SQL text.
func sortedFields(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

// InsertUser inserts a record with the given id.
func (s *Store) InsertUser(ctx context.Context, id string, fields map[string]any) error {
	keys := sortedFields(fields)
	cols, err := s.canonical(ctx, keys)
	if err != nil {
		return err
	}

	names := []string{quoteIdent("Id")}
	marks := []string{"?"}
	args := []any{id}
	for i, col := range cols {
		if col.Primary {
			continue
		}
		names = append(names, quoteIdent(col.Name))
		marks = append(marks, "?")
		args = append(args, fields[keys[i]])
	}

	query := fmt.Sprintf(`INSERT INTO "User" (%s) VALUES (%s)`,
		strings.Join(names, ", "), strings.Join(marks, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert user: %w", classify(err))
	}
	return nil
}

// UpdateUser sets fields on the record id.
func (s *Store) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	keys := sortedFields(fields)
	cols, err := s.canonical(ctx, keys)
	if err != nil {
		return err
	}

	var sets []string
	var args []any
	for i, col := range cols {
		if col.Primary {
			continue
		}
		sets = append(sets, quoteIdent(col.Name)+" = ?")
		args = append(args, fields[keys[i]])
	}
	if len(sets) == 0 {
		return s.requireUser(ctx, id)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE "User" SET %s WHERE "Id" = ?`, strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPassword stores the password of record id.
func (s *Store) SetPassword(ctx context.Context, id, password string) error {
	if err := s.requireUser(ctx, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_passwords (user_id, password) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET password = excluded.password
	`, id, password)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

// PasswordOf returns the stored password of record id.
func (s *Store) PasswordOf(ctx context.Context, id string) (string, error) {
	var pw string
	err := s.db.QueryRowContext(ctx, `SELECT password FROM user_passwords WHERE user_id = ?`, id).Scan(&pw)
	if err != nil {
		return "", fmt.Errorf("password of %s: %w", id, err)
	}
	return pw, nil
}

func (s *Store) requireUser(ctx context.Context, id string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "User" WHERE "Id" = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Select runs a SELECT over the User table. where is query-language text
// embedded as-is; it uses the operator subset SQLite shares with it.
// Records come back in insertion order.
func (s *Store) Select(ctx context.Context, columns []string, where string) ([]map[string]any, error) {
	cols, err := s.canonical(ctx, columns)
	if err != nil {
		return nil, err
	}
	if strings.Contains(where, ";") {
		return nil, fmt.Errorf("select: unexpected ';' in WHERE clause")
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c.Name)
	}
	query := fmt.Sprintf(`SELECT %s FROM "User"`, strings.Join(quoted, ", "))
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	var records []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		record := make(map[string]any, len(cols))
		for i, c := range cols {
			record[c.Name] = normalize(c, values[i])
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// normalize gives scanned values the JSON shape of their declared type.
func normalize(col Column, v any) any {
	switch val := v.(type) {
	case []byte:
		if strings.EqualFold(col.Type, "BLOB") {
			return val
		}
		return string(val)
	case int64:
		if strings.EqualFold(col.Type, "BOOLEAN") {
			return val != 0
		}
		return val
	default:
		return v
	}
}

// classify maps SQLite constraint errors to sandbox errors.
func classify(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrDuplicateUsername
	}
	return err
}
