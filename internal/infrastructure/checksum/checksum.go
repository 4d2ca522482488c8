// Package checksum computes file digests used to recognise already ingested files.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	SHA256 = "sha256"
	XXHash = "xxhash"
)

// Hasher streams a file through a hash function.
type Hasher struct {
	algorithm string
	newHash   func() hash.Hash
}

// New returns a Hasher for the named algorithm.
func New(algorithm string) (*Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", SHA256:
		return &Hasher{algorithm: SHA256, newHash: sha256.New}, nil
	case XXHash, "xxh64":
		return &Hasher{algorithm: XXHash, newHash: func() hash.Hash { return xxhash.New() }}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// Algorithm returns the canonical algorithm name.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// File returns the digest of the file at path. See Reader for the format.
func (h *Hasher) File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return h.Reader(f)
}

// Reader returns the digest of everything read from r as "<algorithm>:<hex>", so
// digests of different algorithms never compare equal.
func (h *Hasher) Reader(r io.Reader) (string, error) {
	sum := h.newHash()
	if _, err := io.Copy(sum, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return h.algorithm + ":" + hex.EncodeToString(sum.Sum(nil)), nil
}
