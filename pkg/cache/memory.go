package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryBackend is an in-process expirable LRU. Entries expire after the TTL
// given at construction; the per-write TTL parameter is accepted for
// interface compatibility but the construction TTL governs.
type MemoryBackend struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryBackend builds a memory backend holding at most maxEntries values
// for ttl each.
func NewMemoryBackend(maxEntries int, ttl time.Duration) *MemoryBackend {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryBackend{
		lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl),
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return value, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.lru.Add(key, value)
	return nil
}

func (m *MemoryBackend) Close() error {
	m.lru.Purge()
	return nil
}
