package pgql

import (
	"context"
	"strconv"
	"time"
)

// Cache is an optional response cache the Query Compiler consults before
// issuing a read-only SELECT, and populates after. It is not the catalog
// snapshot cache (see package catalog, which has its own TTL/invalidation
// model owned exclusively by the Reflector) — this is a plain key/value
// cache for compiled query results, analogous to graphjin's response cache.
// Users plug in their own implementation (Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies a compiled read query for response caching. Predicates
// and OrderBy should be stable string encodings of the WhereTree/orderBy so
// equivalent queries (same table, same filter, same ordering) share a cache
// entry regardless of GraphQL argument ordering.
type CacheKey struct {
	Table      string
	Operation  string
	Predicates string
	OrderBy    string
	Limit      int
	Offset     int
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return k.Table + ":" + k.Operation + ":" + k.Predicates + ":" + k.OrderBy +
		":" + strconv.Itoa(k.Limit) + ":" + strconv.Itoa(k.Offset)
}
