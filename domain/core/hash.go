package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough for logs and reports
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// SetHash hashes a set of string members independent of their order.
// Duplicate members collapse.
func SetHash(members []string) Hash {
	sorted := make([]string, len(members))
	copy(sorted, members)
	sort.Strings(sorted)

	var data strings.Builder
	prev := ""
	for i, m := range sorted {
		if i > 0 && m == prev {
			continue
		}
		data.WriteString(m)
		data.WriteByte(0)
		prev = m
	}
	return NewHash([]byte(data.String()))
}
