// Package cache memoizes query responses. Entries are only ever dropped
// wholesale by Clear or by their TTL; there is no selective invalidation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache stores JSON-encoded values under string keys.
type Cache interface {
	// Get decodes the value stored under key into dst. ok is false on a miss.
	Get(ctx context.Context, key string, dst any) (ok bool, err error)
	Set(ctx context.Context, key string, value any) error
	// Clear drops every entry.
	Clear(ctx context.Context) error
}

// Fetch returns the cached value for key, or calls load and caches its
// result. Cache failures fall through to load; they never fail the read.
func Fetch[T any](ctx context.Context, c Cache, key string, load func() (T, error)) (T, error) {
	var v T
	if c != nil {
		if ok, err := c.Get(ctx, key, &v); err == nil && ok {
			return v, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if c != nil {
		_ = c.Set(ctx, key, v)
	}
	return v, nil
}

// Memory is an in-process Cache used when no Redis address is configured.
// Values are held JSON-encoded so a hit never aliases a caller's value.
type Memory struct {
	store *gocache.Cache
}

// NewMemory creates a Memory cache. A ttl <= 0 keeps entries until Clear.
func NewMemory(ttl time.Duration) *Memory {
	cleanup := time.Duration(0)
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	} else {
		cleanup = 2 * ttl
	}
	return &Memory{store: gocache.New(ttl, cleanup)}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(v.([]byte), dst); err != nil {
		return false, fmt.Errorf("decode cached %q: %w", key, err)
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	m.store.SetDefault(key, data)
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.store.Flush()
	return nil
}

// Len reports the number of stored entries, expired ones not yet swept included.
func (m *Memory) Len() int {
	return m.store.ItemCount()
}
