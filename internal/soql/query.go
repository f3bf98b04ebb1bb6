package soql

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildQuery assembles the query string sent to the query endpoint:
//
//	SELECT+<a>,<b>,...+from+<Type>[+WHERE+<clause>]
//
// The '+' separators stand for spaces in the URL form encoding the remote
// API expects; the clause itself is embedded unchanged.
func BuildQuery(objectType string, columns []string, where *Where) (string, error) {
	if objectType == "" {
		return "", fmt.Errorf("%w: object type must not be empty", ErrInvalidArgument)
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("%w: at least one column is required", ErrInvalidArgument)
	}

	var sb strings.Builder
	sb.WriteString("SELECT+")
	sb.WriteString(strings.Join(columns, ","))
	sb.WriteString("+from+")
	sb.WriteString(objectType)

	if where != nil && where.String() != "" {
		sb.WriteString("+WHERE+")
		sb.WriteString(where.String())
	}
	return sb.String(), nil
}

// EncodeQuery makes a query built by BuildQuery safe to place after "q=".
// The '+' separators are kept; every other reserved character (spaces,
// quotes, % wildcards) is percent-encoded, and spaces become '+'.
func EncodeQuery(query string) string {
	parts := strings.Split(query, "+")
	for i, part := range parts {
		parts[i] = url.QueryEscape(part)
	}
	return strings.Join(parts, "+")
}
