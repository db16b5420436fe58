// ABOUTME: Run id generation using ULIDs with crypto/rand entropy.
// ABOUTME: Centralizes id creation so every run id shares the same sortable format.
package engine

import (
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewRunID generates a new lowercase ULID run identifier.
func NewRunID() string {
	return strings.ToLower(ulid.MustNew(ulid.Now(), rand.Reader).String())
}
