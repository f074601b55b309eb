// Package memory provides in-process implementations of outbound ports for
// tests and local development. All types are safe for concurrent use; data is
// lost on process restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

// Compile-time check that CacheStore implements outbound.CacheStore
var _ outbound.CacheStore = (*CacheStore)(nil)

type cacheEntry struct {
	value       string
	lastQueried time.Time
}

// CacheStore is an in-memory implementation of the CacheStore port.
//
// A read scope holds the read lock for its duration. A write scope holds the
// write lock, stages its writes and applies them only if the scope succeeds.
type CacheStore struct {
	mu      sync.RWMutex
	entries map[outbound.CacheKey]cacheEntry
}

// NewCacheStore creates a new, empty in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		entries: make(map[outbound.CacheKey]cacheEntry),
	}
}

// WithReadScope runs fn with a consistent view of the store.
func (s *CacheStore) WithReadScope(ctx context.Context, fn func(r outbound.CacheReader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&cacheReader{entries: s.entries})
}

// WithWriteScope runs fn and commits its writes only if fn succeeds.
func (s *CacheStore) WithWriteScope(ctx context.Context, fn func(w outbound.CacheWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w := &cacheWriter{
		cacheReader: cacheReader{entries: s.entries},
		staged:      make(map[outbound.CacheKey]cacheEntry),
	}
	if err := fn(w); err != nil {
		return err
	}
	for k, e := range w.staged {
		s.entries[k] = e
	}
	return nil
}

// SetRaw writes an entry directly, bypassing encoding and the monotonic
// timestamp rule (for testing corrupt or back-dated entries).
func (s *CacheStore) SetRaw(key outbound.CacheKey, value string, lastQueried time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cacheEntry{value: value, lastQueried: lastQueried}
}

// Len returns the number of entries (for testing).
func (s *CacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

type cacheReader struct {
	entries map[outbound.CacheKey]cacheEntry
}

func (r *cacheReader) GetUniqueValue(_ context.Context, key outbound.CacheKey) (string, bool, error) {
	e, ok := r.entries[key]
	return e.value, ok, nil
}

func (r *cacheReader) GetUniqueLastQueried(_ context.Context, key outbound.CacheKey) (time.Time, bool, error) {
	e, ok := r.entries[key]
	return e.lastQueried, ok, nil
}

type cacheWriter struct {
	cacheReader
	staged map[outbound.CacheKey]cacheEntry
}

func (w *cacheWriter) lookup(key outbound.CacheKey) (cacheEntry, bool) {
	if e, ok := w.staged[key]; ok {
		return e, true
	}
	e, ok := w.entries[key]
	return e, ok
}

func (w *cacheWriter) GetUniqueValue(_ context.Context, key outbound.CacheKey) (string, bool, error) {
	e, ok := w.lookup(key)
	return e.value, ok, nil
}

func (w *cacheWriter) GetUniqueLastQueried(_ context.Context, key outbound.CacheKey) (time.Time, bool, error) {
	e, ok := w.lookup(key)
	return e.lastQueried, ok, nil
}

func (w *cacheWriter) SetUniqueValue(_ context.Context, key outbound.CacheKey, value string, at time.Time) error {
	if prev, ok := w.lookup(key); ok && prev.lastQueried.After(at) {
		at = prev.lastQueried
	}
	w.staged[key] = cacheEntry{value: value, lastQueried: at}
	return nil
}
