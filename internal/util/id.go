package util

import "github.com/google/uuid"

// NewID generates a unique identifier for sessions, responses and plan
// entries.
func NewID() string { return uuid.NewString() }
