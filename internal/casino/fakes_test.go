package casino

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tradege/stek-sub008/internal/config"
	"github.com/tradege/stek-sub008/internal/engine"
	"github.com/tradege/stek-sub008/internal/games"
	"github.com/tradege/stek-sub008/internal/models"
	"github.com/tradege/stek-sub008/internal/session"
)

// memState is the shared backing state of the fake stores. The fake
// runner snapshots it before each unit of work and restores the
// snapshot on error, so the settlement atomicity contract holds in
// tests exactly as it does against a real transaction.
type memState struct {
	wallets     map[string]*models.Wallet
	walletsByID map[uuid.UUID]string
	entries     []*models.LedgerEntry
	bets        []*models.BetRound
	seeds       map[string]*models.SeedPair
}

func newMemState() *memState {
	return &memState{
		wallets:     make(map[string]*models.Wallet),
		walletsByID: make(map[uuid.UUID]string),
		seeds:       make(map[string]*models.SeedPair),
	}
}

func walletKey(userID uuid.UUID, currency string) string {
	return fmt.Sprintf("%s:%s", userID, currency)
}

func seedKey(userID uuid.UUID, game string) string {
	return fmt.Sprintf("%s:%s", userID, game)
}

func (s *memState) clone() *memState {
	cp := newMemState()
	for k, w := range s.wallets {
		wc := *w
		cp.wallets[k] = &wc
	}
	for id, k := range s.walletsByID {
		cp.walletsByID[id] = k
	}
	for _, e := range s.entries {
		ec := *e
		cp.entries = append(cp.entries, &ec)
	}
	for _, b := range s.bets {
		bc := *b
		cp.bets = append(cp.bets, &bc)
	}
	for k, p := range s.seeds {
		pc := *p
		cp.seeds[k] = &pc
	}
	return cp
}

// fundWallet creates a wallet holding the given balance.
func (s *memState) fundWallet(userID uuid.UUID, currency, balance string) *models.Wallet {
	w := &models.Wallet{
		ID:       uuid.New(),
		UserID:   userID,
		Currency: currency,
		Balance:  decimal.RequireFromString(balance),
		Status:   models.WalletStatusActive,
	}
	s.wallets[walletKey(userID, currency)] = w
	s.walletsByID[w.ID] = walletKey(userID, currency)
	return w
}

// seedPair installs a deterministic seed pair so round outcomes are
// predictable. The next consumed nonce is nonce+1.
func (s *memState) seedPair(userID uuid.UUID, game, server, client string, nonce uint64) {
	s.seeds[seedKey(userID, game)] = &models.SeedPair{
		ID:             uuid.New(),
		UserID:         userID,
		Game:           game,
		ServerSeed:     server,
		ServerSeedHash: engine.HashServerSeed(server),
		ClientSeed:     client,
		Nonce:          nonce,
	}
}

func (s *memState) wallet(userID uuid.UUID, currency string) *models.Wallet {
	return s.wallets[walletKey(userID, currency)]
}

func (s *memState) entriesOfKind(kind models.LedgerKind) []*models.LedgerEntry {
	var out []*models.LedgerEntry
	for _, e := range s.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeRunner struct {
	s *memState
}

func (r *fakeRunner) WithinTx(_ context.Context, fn func(uow UnitOfWork) error) error {
	snapshot := r.s.clone()
	if err := fn(&fakeUOW{s: r.s}); err != nil {
		*r.s = *snapshot
		return err
	}
	return nil
}

// hookedRunner wraps the fake runner so a test can interleave work at
// a chosen point inside a unit of work.
type hookedRunner struct {
	inner *fakeRunner
	wrap  func(UnitOfWork) UnitOfWork
}

func (r *hookedRunner) WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error {
	return r.inner.WithinTx(ctx, func(uow UnitOfWork) error {
		return fn(r.wrap(uow))
	})
}

type hookedUOW struct {
	UnitOfWork
	wallets WalletStore
}

func (u *hookedUOW) Wallets() WalletStore { return u.wallets }

// lockContendedWallets runs a callback before the wallet row is
// acquired, standing in for a competing transaction that wins the
// lock race and commits first.
type lockContendedWallets struct {
	WalletStore
	beforeLock func()
}

func (w *lockContendedWallets) GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error) {
	if w.beforeLock != nil {
		w.beforeLock()
		w.beforeLock = nil
	}
	return w.WalletStore.GetOrCreate(ctx, userID, currency)
}

type fakeUOW struct {
	s *memState
}

func (u *fakeUOW) Wallets() WalletStore { return &fakeWallets{s: u.s} }
func (u *fakeUOW) Ledger() LedgerStore  { return &fakeLedger{s: u.s} }
func (u *fakeUOW) Bets() BetStore       { return &fakeBets{s: u.s} }
func (u *fakeUOW) Seeds() SeedStore     { return &fakeSeeds{s: u.s} }

type fakeWallets struct {
	s *memState
}

func (f *fakeWallets) Get(_ context.Context, userID uuid.UUID, currency string) (*models.Wallet, error) {
	w, ok := f.s.wallets[walletKey(userID, currency)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWallets) Lock(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error) {
	return f.Get(ctx, userID, currency)
}

func (f *fakeWallets) LockByID(_ context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	key, ok := f.s.walletsByID[walletID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f.s.wallets[key]
	return &cp, nil
}

func (f *fakeWallets) GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error) {
	if w, err := f.Get(ctx, userID, currency); err == nil {
		return w, nil
	}
	w := f.s.fundWallet(userID, currency, "0")
	cp := *w
	return &cp, nil
}

func (f *fakeWallets) UpdateBalance(_ context.Context, walletID uuid.UUID, balance, locked decimal.Decimal) error {
	key, ok := f.s.walletsByID[walletID]
	if !ok {
		return ErrNotFound
	}
	w := f.s.wallets[key]
	w.Balance = balance
	w.LockedBalance = locked
	w.UpdatedAt = time.Now()
	return nil
}

type fakeLedger struct {
	s *memState
}

func (f *fakeLedger) Create(_ context.Context, entry *models.LedgerEntry) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	cp := *entry
	f.s.entries = append(f.s.entries, &cp)
	return nil
}

func (f *fakeLedger) ExistsByExternalRef(_ context.Context, externalRef string) (bool, error) {
	for _, e := range f.s.entries {
		if e.ExternalRef != nil && *e.ExternalRef == externalRef {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) UpdateStatus(_ context.Context, id uuid.UUID, status models.LedgerStatus) error {
	for _, e := range f.s.entries {
		if e.ID == id && e.Status == models.LedgerStatusPending {
			e.Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeLedger) Get(_ context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	for _, e := range f.s.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

type fakeBets struct {
	s *memState
}

func (f *fakeBets) Create(_ context.Context, bet *models.BetRound) error {
	bet.CreatedAt = time.Now()
	cp := *bet
	f.s.bets = append(f.s.bets, &cp)
	return nil
}

func (f *fakeBets) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]models.BetRound, error) {
	var out []models.BetRound
	for i := len(f.s.bets) - 1; i >= 0 && len(out) < limit; i-- {
		if f.s.bets[i].UserID == userID {
			out = append(out, *f.s.bets[i])
		}
	}
	return out, nil
}

type fakeSeeds struct {
	s *memState
}

func (f *fakeSeeds) GetActive(_ context.Context, userID uuid.UUID, game string) (*models.SeedPair, error) {
	p, ok := f.s.seeds[seedKey(userID, game)]
	if !ok || p.Revealed {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeSeeds) Create(_ context.Context, pair *models.SeedPair) error {
	pair.CreatedAt = time.Now()
	cp := *pair
	f.s.seeds[seedKey(pair.UserID, pair.Game)] = &cp
	return nil
}

func (f *fakeSeeds) ConsumeNonce(_ context.Context, userID uuid.UUID, game string) (*models.SeedPair, error) {
	p, ok := f.s.seeds[seedKey(userID, game)]
	if !ok || p.Revealed {
		return nil, ErrNotFound
	}
	p.Nonce++
	cp := *p
	return &cp, nil
}

func (f *fakeSeeds) SetClientSeed(_ context.Context, userID uuid.UUID, game, clientSeed string) error {
	p, ok := f.s.seeds[seedKey(userID, game)]
	if !ok || p.Revealed {
		return ErrNotFound
	}
	p.ClientSeed = clientSeed
	return nil
}

func (f *fakeSeeds) Reveal(_ context.Context, userID uuid.UUID, game string) (*models.SeedPair, error) {
	p, ok := f.s.seeds[seedKey(userID, game)]
	if !ok || p.Revealed {
		return nil, ErrNotFound
	}
	now := time.Now()
	p.Revealed = true
	p.RotatedAt = &now
	cp := *p
	return &cp, nil
}

func testServiceConfig() *config.Config {
	return &config.Config{
		DefaultHouseEdge: 0.04,
		HouseEdges:       make(map[string]float64),
		MaxMultiplier:    games.DefaultMaxMultiplier,
		MinStake:         decimal.RequireFromString("0.1"),
		MaxStake:         decimal.NewFromInt(10000),
		Currencies:       []string{"USDT"},
		SessionTTL:       time.Hour,
	}
}

func newTestService(t *testing.T) (*Service, *memState) {
	t.Helper()
	st := newMemState()
	return newTestServiceOn(t, &fakeRunner{s: st}), st
}

func newTestServiceOn(t *testing.T, runner TxRunner) *Service {
	t.Helper()
	return newTestServiceWith(t, runner, session.NewMemoryStore())
}

func newTestServiceWith(t *testing.T, runner TxRunner, store session.Store) *Service {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(runner, session.NewRegistry(store), testServiceConfig(), log)
}
