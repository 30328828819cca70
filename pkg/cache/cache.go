// Package cache provides byte-level caching for layouts, rendered artifacts
// and summarization responses.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: shared cache for the HTTP server
//   - [NullCache]: never stores anything (--no-cache)
//
// # Keys
//
// Keys come from a [Keyer] so that every backend sees the same key space:
//
//	k := cache.NewDefaultKeyer()
//	key := k.LayoutKey(cache.Hash(flowJSON), cache.LayoutKeyOpts{Vertical: 300})
//
// [NewScopedKeyer] prefixes keys, e.g. per server instance.
package cache

import (
	"context"
	"time"
)

// Default TTLs per entry type.
const (
	LayoutTTL   = 7 * 24 * time.Hour
	ArtifactTTL = 7 * 24 * time.Hour
	SummaryTTL  = 24 * time.Hour
)

// Cache stores opaque byte values by key.
//
// Get returns (nil, false, nil) on a miss; an error means the backend failed,
// not that the key was absent. A ttl of 0 stores without expiration.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
