package domain

import "time"

// CacheEntry wraps a cached value. Invariant: ExpiresAt > ComputedAt.
type CacheEntry[T any] struct {
	Value      T         `json:"value"`
	ComputedAt time.Time `json:"computed_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Fresh reports whether the entry may be served as fresh at now.
func (e CacheEntry[T]) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// CacheRecord is the persisted, type-erased form of a CacheEntry.
type CacheRecord struct {
	Key        string
	Data       []byte // JSON-encoded value
	ComputedAt time.Time
	ExpiresAt  time.Time
}

// Cache keys.
const (
	DailySkyKey       = "daily-sky"
	TransitsKeyPrefix = "transits:"
)

// TransitsKey returns the cache key for a birth data fingerprint.
func TransitsKey(fingerprint string) string {
	return TransitsKeyPrefix + fingerprint
}
