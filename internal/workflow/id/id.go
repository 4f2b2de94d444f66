// Package id provides unique identifier generation for generation requests.
package id

import (
	"github.com/google/uuid"
)

// Prefix is prepended to every generated request ID.
const Prefix = "gen-"

// Generate creates a new unique request ID.
// Format: gen-<uuid v4>
// Example: gen-0b6f1c9e-3c1f-4d7e-9a51-2f1b3c4d5e6f
func Generate() string {
	return Prefix + uuid.NewString()
}

// Valid reports whether s looks like an ID produced by Generate.
func Valid(s string) bool {
	if len(s) <= len(Prefix) || s[:len(Prefix)] != Prefix {
		return false
	}
	_, err := uuid.Parse(s[len(Prefix):])
	return err == nil
}
