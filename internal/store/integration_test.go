package store

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/tradege/stek-sub008/internal/casino"
	"github.com/tradege/stek-sub008/internal/models"
)

// setupTestDB starts a disposable postgres container, applies the
// migrations and returns a connected pool. Requires docker; skipped
// with -short.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("casino_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{"test": "casino-store"}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, MigrateUp(connStr))

	db, err := Connect(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func TestWalletGetOrCreateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	var first, second *models.Wallet
	require.NoError(t, db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		first, err = NewWalletRepositoryWithTx(tx).GetOrCreate(ctx, userID, "USDT")
		return err
	}))
	require.NoError(t, db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		second, err = NewWalletRepositoryWithTx(tx).GetOrCreate(ctx, userID, "USDT")
		return err
	}))

	assert.Equal(t, first.ID, second.ID, "one wallet per (user, currency)")
	assert.True(t, second.Balance.IsZero())
}

func TestWalletMissing(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewWalletRepository(db).Get(context.Background(), uuid.New(), "USDT")
	assert.ErrorIs(t, err, ErrNotFound)
}

// Concurrent read-modify-write settlements on one wallet must
// serialize on the row lock: with 20 concurrent +1 credits the final
// balance is exactly 20.
func TestWalletLockSerializesSettlements(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := NewWalletRepositoryWithTx(tx).GetOrCreate(ctx, userID, "USDT")
		return err
	}))

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- db.WithTransaction(ctx, func(tx pgx.Tx) error {
				repo := NewWalletRepositoryWithTx(tx)
				w, err := repo.Lock(ctx, userID, "USDT")
				if err != nil {
					return err
				}
				return repo.UpdateBalance(ctx, w.ID, w.Balance.Add(decimal.NewFromInt(1)), w.LockedBalance)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	w, err := NewWalletRepository(db).Get(ctx, userID, "USDT")
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(workers)),
		"expected balance %d, got %s", workers, w.Balance)
}

func TestLedgerExternalRefUnique(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	ref := "0xdeadbeef"

	var wallet *models.Wallet
	require.NoError(t, db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		wallet, err = NewWalletRepositoryWithTx(tx).GetOrCreate(ctx, userID, "USDT")
		return err
	}))

	entry := func() *models.LedgerEntry {
		return &models.LedgerEntry{
			WalletID:      wallet.ID,
			UserID:        userID,
			Kind:          models.LedgerKindDeposit,
			Status:        models.LedgerStatusConfirmed,
			Amount:        decimal.NewFromInt(5),
			BalanceBefore: decimal.Zero,
			BalanceAfter:  decimal.NewFromInt(5),
			ExternalRef:   &ref,
		}
	}

	require.NoError(t, db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return NewLedgerRepositoryWithTx(tx).Create(ctx, entry())
	}))

	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return NewLedgerRepositoryWithTx(tx).Create(ctx, entry())
	})
	require.Error(t, err, "a second entry with the same external ref must be rejected")

	repo := NewLedgerRepository(db)
	exists, err := repo.ExistsByExternalRef(ctx, ref)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSeedConsumeNonce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	pair := &models.SeedPair{
		ID:             uuid.New(),
		UserID:         userID,
		Game:           "dice",
		ServerSeed:     "server",
		ServerSeedHash: "hash",
		ClientSeed:     "client",
	}
	require.NoError(t, db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return NewSeedRepositoryWithTx(tx).Create(ctx, pair)
	}))

	for want := uint64(1); want <= 3; want++ {
		var got *models.SeedPair
		require.NoError(t, db.WithTransaction(ctx, func(tx pgx.Tx) error {
			var err error
			got, err = NewSeedRepositoryWithTx(tx).ConsumeNonce(ctx, userID, "dice")
			return err
		}))
		assert.Equal(t, want, got.Nonce)
	}
}

func TestSeedOneActivePairPerGame(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	fresh := func() *models.SeedPair {
		return &models.SeedPair{
			ID:             uuid.New(),
			UserID:         userID,
			Game:           "dice",
			ServerSeed:     "server",
			ServerSeedHash: "hash",
			ClientSeed:     "client",
		}
	}

	require.NoError(t, db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return NewSeedRepositoryWithTx(tx).Create(ctx, fresh())
	}))

	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return NewSeedRepositoryWithTx(tx).Create(ctx, fresh())
	})
	require.Error(t, err, "a second active pair for the same user and game must be rejected")

	// Revealing the pair frees the slot for the next commitment.
	require.NoError(t, db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := NewSeedRepositoryWithTx(tx).Reveal(ctx, userID, "dice")
		return err
	}))
	require.NoError(t, db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return NewSeedRepositoryWithTx(tx).Create(ctx, fresh())
	}))
}

// An error inside the unit of work must leave no trace of any write
// made before it.
func TestTxRunnerRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	runner := NewTxRunner(db)

	require.NoError(t, runner.WithinTx(ctx, func(uow casino.UnitOfWork) error {
		w, err := uow.Wallets().GetOrCreate(ctx, userID, "USDT")
		if err != nil {
			return err
		}
		return uow.Wallets().UpdateBalance(ctx, w.ID, decimal.NewFromInt(100), decimal.Zero)
	}))

	sentinel := casino.ErrInvariant
	err := runner.WithinTx(ctx, func(uow casino.UnitOfWork) error {
		w, err := uow.Wallets().Lock(ctx, userID, "USDT")
		if err != nil {
			return err
		}
		if err := uow.Wallets().UpdateBalance(ctx, w.ID, decimal.Zero, decimal.Zero); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	w, err := NewWalletRepository(db).Get(ctx, userID, "USDT")
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(100)),
		"the aborted update must not survive, got %s", w.Balance)
}

func TestBetRoundPersistence(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	runner := NewTxRunner(db)

	var entryID uuid.UUID
	require.NoError(t, runner.WithinTx(ctx, func(uow casino.UnitOfWork) error {
		w, err := uow.Wallets().GetOrCreate(ctx, userID, "USDT")
		if err != nil {
			return err
		}
		entry := &models.LedgerEntry{
			WalletID:      w.ID,
			UserID:        userID,
			Kind:          models.LedgerKindBetStake,
			Status:        models.LedgerStatusConfirmed,
			Amount:        decimal.NewFromInt(-10),
			BalanceBefore: decimal.NewFromInt(10),
			BalanceAfter:  decimal.Zero,
		}
		if err := uow.Ledger().Create(ctx, entry); err != nil {
			return err
		}
		entryID = entry.ID

		return uow.Bets().Create(ctx, &models.BetRound{
			ID:             uuid.New(),
			UserID:         userID,
			Game:           "dice",
			Currency:       "USDT",
			Stake:          decimal.NewFromInt(10),
			ServerSeedHash: "hash",
			ClientSeed:     "client",
			Nonce:          1,
			Outcome:        60.68,
			Multiplier:     decimal.RequireFromString("1.92"),
			Payout:         decimal.RequireFromString("19.2"),
			Win:            true,
			LedgerEntryID:  entryID,
			Details:        map[string]any{"target": 50.0},
		})
	}))

	bets, err := NewBetRepository(db).ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, uint64(1), bets[0].Nonce)
	assert.True(t, bets[0].Multiplier.Equal(decimal.RequireFromString("1.92")))
	assert.Equal(t, entryID, bets[0].LedgerEntryID)
}
