package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tradege/stek-sub008/internal/models"
)

// WalletRepository reads and mutates wallet rows. Mutations must only
// happen through a transaction that holds the row lock.
type WalletRepository struct {
	q queryable
}

func NewWalletRepository(db *DB) *WalletRepository {
	return &WalletRepository{q: db.Pool}
}

func NewWalletRepositoryWithTx(tx pgx.Tx) *WalletRepository {
	return &WalletRepository{q: tx}
}

const walletColumns = `id, user_id, currency, balance, locked_balance, deposit_address, status, created_at, updated_at`

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Currency, &w.Balance, &w.LockedBalance,
		&w.DepositAddress, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("wallet: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	return &w, nil
}

// Get returns a wallet without locking it.
func (r *WalletRepository) Get(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 AND currency = $2`,
		userID, currency)
	return scanWallet(row)
}

// Lock acquires the exclusive row lock for a wallet and returns its
// current state. Concurrent settlements on the same wallet serialize
// here; different wallets proceed in parallel.
func (r *WalletRepository) Lock(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 AND currency = $2 FOR UPDATE`,
		userID, currency)
	return scanWallet(row)
}

// LockByID acquires the exclusive row lock for a wallet by primary
// key. Used when the caller starts from a ledger entry rather than a
// (user, currency) pair.
func (r *WalletRepository) LockByID(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`,
		walletID)
	return scanWallet(row)
}

// GetOrCreate returns the wallet, creating it lazily on first use.
func (r *WalletRepository) GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO wallets (id, user_id, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, currency) DO UPDATE SET updated_at = now()
		RETURNING `+walletColumns,
		uuid.New(), userID, currency)
	return scanWallet(row)
}

// UpdateBalance writes new available and locked balances for a wallet
// the caller has locked in the same transaction.
func (r *WalletRepository) UpdateBalance(ctx context.Context, walletID uuid.UUID, balance, locked decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE wallets SET balance = $2, locked_balance = $3, updated_at = now()
		WHERE id = $1`,
		walletID, balance, locked)
	if err != nil {
		return fmt.Errorf("failed to update wallet %s: %w", walletID, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("wallet %s: %w", walletID, ErrNotFound)
	}
	return nil
}
