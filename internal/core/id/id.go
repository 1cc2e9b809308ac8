// Package id provides UUIDv7 identifiers for all entities.
// UUIDv7 is time-ordered, so ledger rows sort naturally by creation time.
package id

import (
	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a new UUIDv7, falling back to V4.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Ptr returns a pointer to v, or nil for the zero ID.
// Nullable foreign keys (transfer "from" side, line product) use *ID.
func Ptr(v ID) *ID {
	if IsNil(v) {
		return nil
	}
	return &v
}

// Deref returns the pointed-to ID or Nil.
func Deref(p *ID) ID {
	if p == nil {
		return uuid.Nil
	}
	return *p
}

// EqualPtr compares two nullable IDs.
func EqualPtr(a, b *ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
