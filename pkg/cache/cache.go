// Package cache holds per-session upload stores.
package cache

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySession = errors.New("cache: empty session id")
)

// GenerateKey creates a cache key with prefix and ID.
func GenerateKey(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
