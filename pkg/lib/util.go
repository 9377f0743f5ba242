package lib

import (
	"github.com/google/uuid"
)

// NewID generates a UUID version 4 string (RFC 4122) used as an invocation id.
func NewID() string {
	return uuid.NewString()
}

// IntPtr returns a pointer to a copy of v.
func IntPtr(v int) *int {
	return &v
}
