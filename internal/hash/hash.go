// Package hash provides content hashing for entry comparison.
//
// The merge engine uses SHA-256 digests to decide whether two sources
// supplied byte-identical content at the same path, which downgrades an
// ErrorIfConflict collision to a non-conflict. The package provides both a
// real implementation using crypto/sha256 and a fake implementation for
// testing.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher provides an abstraction for content hashing operations.
type Hasher interface {
	// HashBytes computes the hash of the given content.
	HashBytes(data []byte) string
}

// SHA256Hasher implements Hasher using SHA-256.
type SHA256Hasher struct{}

// NewSHA256Hasher creates a new SHA256Hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// HashBytes computes the SHA-256 hash of the given content.
func (h *SHA256Hasher) HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FakeHasher implements Hasher with deterministic hashes for testing.
type FakeHasher struct {
	hashes map[string]string
}

// NewFakeHasher creates a new FakeHasher.
func NewFakeHasher() *FakeHasher {
	return &FakeHasher{
		hashes: make(map[string]string),
	}
}

// SetHash sets the hash for specific content (for testing).
func (h *FakeHasher) SetHash(content, hash string) {
	h.hashes[content] = hash
}

// HashBytes returns the predetermined hash for the given content.
func (h *FakeHasher) HashBytes(data []byte) string {
	if hash, ok := h.hashes[string(data)]; ok {
		return hash
	}
	// Default hash if not set
	return "fakehash"
}
