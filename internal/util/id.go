package util

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewUUID returns a random UUID string, the primary-key format for all
// hierarchy entities.
func NewUUID() string {
	return uuid.NewString()
}

// NewID returns a prefixed random hex identifier for non-persistent values
// such as request IDs.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
