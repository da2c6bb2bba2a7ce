// Package pgx implements store.GraphStorage on PostgreSQL. Nodes and edges
// live in the graph_nodes and graph_edges tables created by the migrations
// in internal/db. Merge-or-create is a single INSERT ... ON CONFLICT so
// concurrent sessions converge on one row per key.
package pgx

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// querier is the subset shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

const maxUpdateAttempts = 3

// GraphDBStorage implements store.GraphStorage using PostgreSQL. The
// connection is owned by the caller; Close only stops new sessions.
type GraphDBStorage struct {
	conn   pgxIConn
	closed atomic.Bool
}

// NewGraphDBStorageWithConnection creates a GraphDBStorage on an existing
// pool or connection.
func NewGraphDBStorageWithConnection(conn pgxIConn) *GraphDBStorage {
	return &GraphDBStorage{conn: conn}
}

// Update runs fn inside one transaction. Deadlocks and serialization
// failures between concurrent merges are retried with a fresh transaction.
func (s *GraphDBStorage) Update(ctx context.Context, fn func(ctx context.Context, tx store.GraphTx) error) error {
	if s.closed.Load() {
		return store.ErrClosed
	}

	var err error
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err = s.updateOnce(ctx, fn)
		if err == nil || !isTransient(err) {
			return err
		}
		logger.Debug("[Store] Retrying transaction after conflict", "attempt", attempt, "err", err)
	}
	return err
}

func (s *GraphDBStorage) updateOnce(ctx context.Context, fn func(ctx context.Context, tx store.GraphTx) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &dbTx{dbReader: dbReader{q: tx}}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// View runs fn inside a read-only transaction so every read sees one
// snapshot-consistent statement stream.
func (s *GraphDBStorage) View(ctx context.Context, fn func(ctx context.Context, tx store.GraphReader) error) error {
	if s.closed.Load() {
		return store.ErrClosed
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET TRANSACTION READ ONLY"); err != nil {
		return err
	}
	if err := fn(ctx, dbReader{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Wipe truncates the graph. TRUNCATE takes an ACCESS EXCLUSIVE lock and
// therefore waits for every open session.
func (s *GraphDBStorage) Wipe(ctx context.Context) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	if _, err := s.conn.Exec(ctx, wipeSQL); err != nil {
		return fmt.Errorf("wipe graph: %w", err)
	}
	logger.Info("[Store] Graph wiped")
	return nil
}

func (s *GraphDBStorage) Close() error {
	s.closed.Store(true)
	return nil
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return true
	default:
		return false
	}
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
