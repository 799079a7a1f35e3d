// Package cache provides a keyed byte cache with time-based expiry and
// invalidation by key prefix.
package cache

import (
	"context"
	"strings"
	"time"
)

// Separator joins the parts of a composite key.
const Separator = ":"

// Cache stores opaque values under composite keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for ttl. A ttl <= 0 uses the backend's default
	// expiration; a zero default keeps the entry until it is invalidated.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// InvalidatePrefix drops every entry whose key starts with prefix.
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// Key builds a composite key from parts.
func Key(parts ...string) string {
	return strings.Join(parts, Separator)
}

// Prefix builds a key prefix that only matches keys made of parts followed by
// at least one more part, so "loc:1" never matches "loc:10".
func Prefix(parts ...string) string {
	return Key(parts...) + Separator
}

func expiration(ttl, fallback time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return max(fallback, 0)
}
