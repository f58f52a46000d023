package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tradege/stek-sub008/internal/models"
)

// LedgerRepository appends immutable balance-mutation records.
type LedgerRepository struct {
	q queryable
}

func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

func NewLedgerRepositoryWithTx(tx pgx.Tx) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Create inserts a ledger entry, assigning its id and timestamp.
func (r *LedgerRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	entry.ID = uuid.New()
	row := r.q.QueryRow(ctx, `
		INSERT INTO ledger_entries
			(id, wallet_id, user_id, kind, status, amount, balance_before, balance_after, external_ref, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		entry.ID, entry.WalletID, entry.UserID, entry.Kind, entry.Status,
		entry.Amount, entry.BalanceBefore, entry.BalanceAfter, entry.ExternalRef, entry.Metadata)
	if err := row.Scan(&entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

// ExistsByExternalRef reports whether a credit with this external
// reference was already recorded, regardless of status.
func (r *LedgerRepository) ExistsByExternalRef(ctx context.Context, externalRef string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE external_ref = $1)`,
		externalRef).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check external ref: %w", err)
	}
	return exists, nil
}

// UpdateStatus records an explicit state transition for a pending
// entry (admin approve/reject). It refuses to touch entries that have
// already left the pending state.
func (r *LedgerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.LedgerStatus) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE ledger_entries SET status = $2
		WHERE id = $1 AND status = 'pending'`,
		id, status)
	if err != nil {
		return fmt.Errorf("failed to update ledger status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("pending ledger entry %s: %w", id, ErrNotFound)
	}
	return nil
}

// Get returns one ledger entry.
func (r *LedgerRepository) Get(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := r.q.QueryRow(ctx, `
		SELECT id, wallet_id, user_id, kind, status, amount, balance_before, balance_after, external_ref, metadata, created_at
		FROM ledger_entries WHERE id = $1`, id).
		Scan(&e.ID, &e.WalletID, &e.UserID, &e.Kind, &e.Status, &e.Amount,
			&e.BalanceBefore, &e.BalanceAfter, &e.ExternalRef, &e.Metadata, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ledger entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &e, nil
}
