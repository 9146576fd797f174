package cache

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMaxEntries bounds a Memory cache created with a non-positive size.
const DefaultMaxEntries = 1024

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache backed by an expiring LRU. maxTTL is the
// longest an entry may live; a shorter ttl passed to Set is kept per entry.
// When full the least recently used entry is dropped.
type Memory struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

var _ Cache = (*Memory)(nil)

// NewMemory returns a cache holding at most maxEntries values. A zero
// maxTTL leaves expiry to the ttl of each Set.
func NewMemory(maxEntries int, maxTTL time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		lru: expirable.NewLRU[string, memoryEntry](maxEntries, nil, maxTTL),
		now: time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.lru.Remove(key)
		return nil, false, nil
	}
	return slices.Clone(e.value), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: slices.Clone(value)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.lru.Add(key, e)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Len returns the number of stored entries. Entries past their per-entry
// ttl count until they are read.
func (m *Memory) Len() int { return m.lru.Len() }

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
