package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Cache backed by go-cache.
type Memory struct {
	store *gocache.Cache
	ttl   time.Duration
}

// NewMemory creates an in-memory cache with the given default expiration and
// cleanup interval.
func NewMemory(defaultExpiration, cleanupInterval time.Duration) *Memory {
	return &Memory{store: gocache.New(defaultExpiration, cleanupInterval), ttl: defaultExpiration}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := m.store.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	ttl = expiration(ttl, m.ttl)
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	m.store.Set(key, value, ttl)
	return nil
}

func (m *Memory) InvalidatePrefix(_ context.Context, prefix string) error {
	for key := range m.store.Items() {
		if strings.HasPrefix(key, prefix) {
			m.store.Delete(key)
		}
	}
	return nil
}

// Len reports the number of unexpired entries.
func (m *Memory) Len() int {
	return m.store.ItemCount()
}
