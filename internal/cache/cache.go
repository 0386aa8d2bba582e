package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a fixed-length cache key for value within namespace.
// User-agent strings are unbounded and attacker controlled, so they are
// hashed rather than used verbatim.
func Key(namespace, value string) string {
	hash := sha256.Sum256([]byte(value))
	return "bristack:" + namespace + ":v1:" + hex.EncodeToString(hash[:])
}
