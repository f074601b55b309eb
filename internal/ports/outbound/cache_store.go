package outbound

import (
	"context"
	"time"
)

// CacheCategory namespaces entries in the unique cache.
type CacheCategory string

// CacheCategoryCoinList holds one serialized coin list per oracle.
const CacheCategoryCoinList CacheCategory = "COINLIST"

// CacheKey identifies a single unique-cache slot: (category, name).
type CacheKey struct {
	Category CacheCategory
	Name     string
}

// String renders the key as "CATEGORY:name", the form adapters persist.
func (k CacheKey) String() string {
	return string(k.Category) + ":" + k.Name
}

// CacheReader reads unique-cache entries inside a scope.
type CacheReader interface {
	// GetUniqueValue returns the stored value, or ok=false if there is no entry.
	GetUniqueValue(ctx context.Context, key CacheKey) (value string, ok bool, err error)

	// GetUniqueLastQueried returns when the entry was last written, or ok=false if there is no entry.
	GetUniqueLastQueried(ctx context.Context, key CacheKey) (lastQueried time.Time, ok bool, err error)
}

// CacheWriter reads and writes unique-cache entries inside a write scope.
type CacheWriter interface {
	CacheReader

	// SetUniqueValue replaces the entry's value and stamps it with at.
	// The stored last-queried time never moves backwards.
	SetUniqueValue(ctx context.Context, key CacheKey, value string, at time.Time) error
}

// CacheStore is the transactional key-value store behind the coin-list cache.
//
// Read and write scopes are independently atomic: a reader sees either the whole
// of a committed write or none of it.
type CacheStore interface {
	// WithReadScope runs fn inside a read-only scope that is released on return.
	WithReadScope(ctx context.Context, fn func(r CacheReader) error) error

	// WithWriteScope runs fn inside a write scope.
	// If fn returns an error, every write made in the scope is discarded.
	// If fn succeeds, the writes are committed before WithWriteScope returns.
	WithWriteScope(ctx context.Context, fn func(w CacheWriter) error) error
}
