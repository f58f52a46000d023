package casino

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradege/stek-sub008/internal/models"
)

// WalletStore reads and mutates wallet rows. Lock and GetOrCreate
// acquire the exclusive row lock when called inside a transaction;
// mutations are only valid under that lock.
type WalletStore interface {
	Get(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error)
	Lock(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error)
	LockByID(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, walletID uuid.UUID, balance, locked decimal.Decimal) error
}

// LedgerStore appends immutable balance-mutation records.
type LedgerStore interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error
	ExistsByExternalRef(ctx context.Context, externalRef string) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.LedgerStatus) error
	Get(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
}

// BetStore persists settled bet rounds.
type BetStore interface {
	Create(ctx context.Context, bet *models.BetRound) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.BetRound, error)
}

// SeedStore manages per-user, per-game seed pairs.
type SeedStore interface {
	GetActive(ctx context.Context, userID uuid.UUID, game string) (*models.SeedPair, error)
	Create(ctx context.Context, pair *models.SeedPair) error
	ConsumeNonce(ctx context.Context, userID uuid.UUID, game string) (*models.SeedPair, error)
	SetClientSeed(ctx context.Context, userID uuid.UUID, game, clientSeed string) error
	Reveal(ctx context.Context, userID uuid.UUID, game string) (*models.SeedPair, error)
}

// UnitOfWork exposes the stores bound to one transaction.
type UnitOfWork interface {
	Wallets() WalletStore
	Ledger() LedgerStore
	Bets() BetStore
	Seeds() SeedStore
}

// TxRunner executes fn inside a single atomic transaction: every
// mutation made through the unit of work commits together or not at
// all.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}
