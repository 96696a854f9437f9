// Package store keeps built event tables keyed by dataset ID.
// Tables are immutable once stored; a backend only ever puts,
// gets, and evicts whole tables.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wesm/listenview/internal/history"
)

// ErrNotFound is returned for IDs the store does not hold,
// including expired and evicted ones.
var ErrNotFound = errors.New("dataset not found")

// Store is a keyed table store. Implementations are safe for
// concurrent use.
type Store interface {
	// Put stores tbl under id, replacing any previous table.
	// A failed Put leaves nothing visible under id.
	Put(ctx context.Context, id string, tbl *history.Table) error
	// Get returns the table stored under id or ErrNotFound.
	Get(ctx context.Context, id string) (*history.Table, error)
	// Evict removes id. It returns ErrNotFound if id is absent.
	Evict(ctx context.Context, id string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and sizes a backend.
type Options struct {
	Backend string
	// MaxDatasets caps the number of stored tables; 0 is
	// unbounded. Redis ignores it.
	MaxDatasets int
	// TTL expires tables after they are stored; 0 never
	// expires.
	TTL      time.Duration
	RedisURL string
}

var (
	storeHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listenview_store_hits_total",
		Help: "Dataset lookups that found a table.",
	}, []string{"backend"})
	storeMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listenview_store_misses_total",
		Help: "Dataset lookups for absent or expired IDs.",
	}, []string{"backend"})
	storeEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listenview_store_evictions_total",
		Help: "Tables removed by capacity, expiry or explicit eviction.",
	}, []string{"backend"})
)

// Open creates the backend named by opts.Backend. An empty
// name selects the memory backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(opts.MaxDatasets, opts.TTL), nil
	case BackendSQLite:
		return OpenSQLite(opts.MaxDatasets, opts.TTL)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisURL, opts.TTL)
	default:
		return nil, fmt.Errorf(
			"unknown store backend %q", opts.Backend,
		)
	}
}

func observeGet(backend string, found bool) {
	if found {
		storeHits.WithLabelValues(backend).Inc()
		return
	}
	storeMisses.WithLabelValues(backend).Inc()
}
