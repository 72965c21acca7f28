// Package embedding turns text into vectors via an external provider, with
// a two-level content-hash cache in front: an in-memory ristretto tier for
// hot entries and a SQLite tier that survives restarts.
package embedding

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
)

// ErrEmbedding wraps any provider failure so callers can classify it.
var ErrEmbedding = errors.New("embedding failed")

// Embedder is the narrow contract the rest of the system consumes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ContentHash computes the SHA-256 fingerprint of text content. The same
// hash serves as the cache key locally and the identity key remotely.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}
