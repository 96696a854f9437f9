package store

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/wesm/listenview/internal/history"
)

// Memory holds tables in process memory in an LRU with an
// optional TTL. Tables are stored by reference; they are
// immutable so no copy is needed.
type Memory struct {
	cache *expirable.LRU[string, *history.Table]
}

var _ Store = (*Memory)(nil)

// NewMemory creates a memory store holding at most size tables
// (0 for no limit), each expiring ttl after it is stored (0 for
// never).
func NewMemory(size int, ttl time.Duration) *Memory {
	onEvict := func(string, *history.Table) {
		storeEvictions.WithLabelValues(BackendMemory).Inc()
	}
	return &Memory{
		cache: expirable.NewLRU[string, *history.Table](
			size, onEvict, ttl,
		),
	}
}

func (m *Memory) Put(
	_ context.Context, id string, tbl *history.Table,
) error {
	m.cache.Add(id, tbl)
	return nil
}

func (m *Memory) Get(
	_ context.Context, id string,
) (*history.Table, error) {
	tbl, ok := m.cache.Get(id)
	observeGet(BackendMemory, ok)
	if !ok {
		return nil, ErrNotFound
	}
	return tbl, nil
}

func (m *Memory) Evict(_ context.Context, id string) error {
	if !m.cache.Remove(id) {
		return ErrNotFound
	}
	return nil
}

// Len returns the number of live tables.
func (m *Memory) Len() int { return m.cache.Len() }

func (m *Memory) Close() error {
	m.cache.Purge()
	return nil
}
