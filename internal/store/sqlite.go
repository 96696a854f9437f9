package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wesm/listenview/internal/history"
)

//go:embed schema.sql
var schemaSQL string

// SQLite keeps compressed tables in a private in-memory SQLite
// database. Capacity is enforced first-in first-out by
// insertion order and expiry by insertion time.
type SQLite struct {
	db  *sql.DB
	mu  sync.Mutex // serializes writes
	max int
	ttl time.Duration
	now func() time.Time
}

var _ Store = (*SQLite)(nil)

// makeDSN names a shared-cache in-memory database unique to
// one store.
func makeDSN(name string) string {
	params := url.Values{}
	params.Set("mode", "memory")
	params.Set("cache", "shared")
	params.Set("_busy_timeout", "5000")
	return "file:" + name + "?" + params.Encode()
}

// OpenSQLite creates an empty SQLite store.
func OpenSQLite(maxDatasets int, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open(
		"sqlite3", makeDSN("listenview-"+uuid.NewString()),
	)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	// The database lives as long as one connection stays
	// open, and a single connection avoids shared-cache table
	// lock errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLite{
		db: db, max: maxDatasets, ttl: ttl, now: time.Now,
	}, nil
}

// update runs fn in a write transaction. If fn returns an
// error the transaction is rolled back.
func (s *SQLite) update(
	ctx context.Context, fn func(tx *sql.Tx) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) cutoff() int64 {
	return s.now().Add(-s.ttl).UnixNano()
}

func (s *SQLite) Put(
	ctx context.Context, id string, tbl *history.Table,
) error {
	blob, err := encodeTable(tbl)
	if err != nil {
		return err
	}
	return s.update(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO datasets
				(id, created_at, row_count, payload)
			VALUES (?, ?, ?, ?)`,
			id, s.now().UnixNano(), tbl.Len(), blob,
		); err != nil {
			return fmt.Errorf("inserting dataset %s: %w", id, err)
		}
		var removed int64
		if s.ttl > 0 {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM datasets WHERE created_at <= ?`,
				s.cutoff(),
			)
			if err != nil {
				return fmt.Errorf("expiring datasets: %w", err)
			}
			n, _ := res.RowsAffected()
			removed += n
		}
		if s.max > 0 {
			res, err := tx.ExecContext(ctx, `
				DELETE FROM datasets WHERE seq NOT IN (
					SELECT seq FROM datasets
					ORDER BY seq DESC LIMIT ?
				)`, s.max,
			)
			if err != nil {
				return fmt.Errorf("trimming datasets: %w", err)
			}
			n, _ := res.RowsAffected()
			removed += n
		}
		storeEvictions.WithLabelValues(BackendSQLite).Add(float64(removed))
		return nil
	})
}

func (s *SQLite) Get(
	ctx context.Context, id string,
) (*history.Table, error) {
	query := `SELECT payload FROM datasets WHERE id = ?`
	args := []any{id}
	if s.ttl > 0 {
		query += ` AND created_at > ?`
		args = append(args, s.cutoff())
	}
	var blob []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		observeGet(BackendSQLite, false)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", id, err)
	}
	observeGet(BackendSQLite, true)
	return decodeTable(blob)
}

func (s *SQLite) Evict(ctx context.Context, id string) error {
	return s.update(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM datasets WHERE id = ?`, id,
		)
		if err != nil {
			return fmt.Errorf("evicting dataset %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		storeEvictions.WithLabelValues(BackendSQLite).Inc()
		return nil
	})
}

// Len returns the number of stored tables, expired or not.
func (s *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM datasets`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting datasets: %w", err)
	}
	return n, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
