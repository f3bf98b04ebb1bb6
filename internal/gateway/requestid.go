package gateway

import "github.com/google/uuid"

// RequestIDHeader carries the per-call request id.
const RequestIDHeader = "X-Request-Id"

// IDGenerator produces request ids. A replayed request keeps the id of the
// first attempt so both show up together in logs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 request ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
