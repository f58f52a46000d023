package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/tradege/stek-sub008/internal/casino"
)

var (
	// ErrNotFound marks a missing wallet, seed pair or ledger entry.
	// Callers must never treat it as a zero balance.
	ErrNotFound = casino.ErrNotFound
	// ErrLockTimeout marks a wallet row lock that could not be
	// acquired in time. The settlement left no partial state, so the
	// whole call is safe to retry.
	ErrLockTimeout = casino.ErrLockTimeout
)

const pgLockNotAvailable = "55P03"

// DB wraps the pgx connection pool.
type DB struct {
	*pgxpool.Pool
}

// Connect opens a connection pool, retrying with backoff while the
// database comes up, and pings it once before returning.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(pool.Ping(ctx))
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// WithTransaction executes fn inside a transaction: commit on nil,
// rollback on error. The tx carries a lock_timeout so wallet-row
// contention surfaces as ErrLockTimeout instead of blocking forever.
func (db *DB) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("rollback failed: %v, original error: %w", rbErr, err)
			}
		}
	}()

	if _, err = tx.Exec(ctx, "SET LOCAL lock_timeout = '3s'"); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}

	if err = fn(tx); err != nil {
		return mapLockError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func mapLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	return err
}

// queryable is satisfied by both the pool and a transaction, so
// repositories can run standalone reads or join a settlement tx.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
