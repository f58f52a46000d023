package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/tradege/stek-sub008/internal/casino"
)

// TxRunner adapts the database to the settlement layer's transaction
// contract. Every unit of work it hands out is bound to one pgx
// transaction, so all repository calls inside commit or roll back
// together.
type TxRunner struct {
	db *DB
}

func NewTxRunner(db *DB) *TxRunner {
	return &TxRunner{db: db}
}

// WithinTx implements casino.TxRunner.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(uow casino.UnitOfWork) error) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return fn(&unitOfWork{tx: tx})
	})
}

type unitOfWork struct {
	tx pgx.Tx
}

func (u *unitOfWork) Wallets() casino.WalletStore { return NewWalletRepositoryWithTx(u.tx) }
func (u *unitOfWork) Ledger() casino.LedgerStore  { return NewLedgerRepositoryWithTx(u.tx) }
func (u *unitOfWork) Bets() casino.BetStore       { return NewBetRepositoryWithTx(u.tx) }
func (u *unitOfWork) Seeds() casino.SeedStore     { return NewSeedRepositoryWithTx(u.tx) }
