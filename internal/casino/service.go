// Package casino implements the money-moving heart of the platform:
// single-shot bet settlement, deposits and withdrawals, the provable
// fairness seed lifecycle and multi-round session orchestration.
// Every balance mutation runs inside one storage transaction under
// the wallet row lock.
package casino

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tradege/stek-sub008/internal/config"
	"github.com/tradege/stek-sub008/internal/engine"
	"github.com/tradege/stek-sub008/internal/games"
	"github.com/tradege/stek-sub008/internal/models"
	"github.com/tradege/stek-sub008/internal/session"
)

const (
	maxClientSeedLen = 64
	defaultBetLimit  = 50
	maxBetLimit      = 200
)

// Service coordinates game evaluation, wallet settlement and session
// state. It is safe for concurrent use.
type Service struct {
	runner   TxRunner
	sessions *session.Registry
	cfg      *config.Config
	log      *logrus.Entry
}

func NewService(runner TxRunner, sessions *session.Registry, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		runner:   runner,
		sessions: sessions,
		cfg:      cfg,
		log:      log.WithField("component", "casino"),
	}
}

// PlayRequest is one single-shot bet.
type PlayRequest struct {
	UserID   uuid.UUID
	Game     string
	Currency string
	Stake    decimal.Decimal
	Params   games.Params
}

// PlayResult is the settled outcome returned to the player. Balance
// reflects both the stake debit and any payout credit.
type PlayResult struct {
	BetID          uuid.UUID       `json:"bet_id"`
	Game           string          `json:"game"`
	Currency       string          `json:"currency"`
	Stake          decimal.Decimal `json:"stake"`
	Outcome        float64         `json:"outcome"`
	OutcomeLabel   string          `json:"outcome_label"`
	Win            bool            `json:"win"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	Payout         decimal.Decimal `json:"payout"`
	Profit         decimal.Decimal `json:"profit"`
	Balance        decimal.Decimal `json:"balance"`
	ServerSeedHash string          `json:"server_seed_hash"`
	ClientSeed     string          `json:"client_seed"`
	Nonce          uint64          `json:"nonce"`
	Details        map[string]any  `json:"details,omitempty"`
}

// Play settles one single-shot bet atomically: debit the stake,
// derive the outcome from the user's committed seed pair, credit the
// payout. Multi-round games must go through StartSession instead.
func (s *Service) Play(ctx context.Context, req PlayRequest) (*PlayResult, error) {
	game, ok := games.Get(req.Game)
	if !ok {
		return nil, validationf("unknown game %q", req.Game)
	}
	if game.Spec().MultiRound {
		return nil, validationf("game %q plays in rounds, start a session instead", req.Game)
	}
	if err := s.validateStake(req.Currency, req.Stake); err != nil {
		return nil, err
	}

	var res *PlayResult
	err := s.runner.WithinTx(ctx, func(uow UnitOfWork) error {
		wallet, err := uow.Wallets().GetOrCreate(ctx, req.UserID, req.Currency)
		if err != nil {
			return err
		}
		if wallet.Status != models.WalletStatusActive {
			return validationf("wallet is %s", wallet.Status)
		}
		if wallet.Balance.LessThan(req.Stake) {
			return ErrInsufficientFunds
		}

		pair, err := s.consumeSeed(ctx, uow, req.UserID, req.Game)
		if err != nil {
			return err
		}

		seeds := games.Seeds{Server: pair.ServerSeed, Client: pair.ClientSeed}
		result, err := game.Evaluate(seeds, pair.Nonce, s.cfg.GameConfig(req.Game), req.Params)
		if err != nil {
			return validationf("invalid play parameters: %v", err)
		}

		payout := req.Stake.Mul(result.Multiplier)
		if err := s.checkSettlement(result.Multiplier, payout); err != nil {
			return err
		}

		stakeEntry, balance, err := appendEntry(ctx, uow, wallet, models.LedgerKindBetStake, req.Stake.Neg(), wallet.Balance, nil, map[string]any{
			"game":  req.Game,
			"nonce": pair.Nonce,
		})
		if err != nil {
			return err
		}

		if payout.IsPositive() {
			if _, balance, err = appendEntry(ctx, uow, wallet, models.LedgerKindBetPayout, payout, balance, nil, map[string]any{
				"game":  req.Game,
				"nonce": pair.Nonce,
			}); err != nil {
				return err
			}
		}

		if err := uow.Wallets().UpdateBalance(ctx, wallet.ID, balance, wallet.LockedBalance); err != nil {
			return err
		}

		bet := &models.BetRound{
			ID:             uuid.New(),
			UserID:         req.UserID,
			Game:           req.Game,
			Currency:       req.Currency,
			Stake:          req.Stake,
			ServerSeedHash: pair.ServerSeedHash,
			ClientSeed:     pair.ClientSeed,
			Nonce:          pair.Nonce,
			Outcome:        result.Outcome,
			Multiplier:     result.Multiplier,
			Payout:         payout,
			Win:            result.Win,
			LedgerEntryID:  stakeEntry.ID,
			Details:        result.Details,
		}
		if err := uow.Bets().Create(ctx, bet); err != nil {
			return err
		}

		res = &PlayResult{
			BetID:          bet.ID,
			Game:           req.Game,
			Currency:       req.Currency,
			Stake:          req.Stake,
			Outcome:        result.Outcome,
			OutcomeLabel:   result.OutcomeLabel,
			Win:            result.Win,
			Multiplier:     result.Multiplier,
			Payout:         payout,
			Profit:         payout.Sub(req.Stake),
			Balance:        balance,
			ServerSeedHash: pair.ServerSeedHash,
			ClientSeed:     pair.ClientSeed,
			Nonce:          pair.Nonce,
			Details:        result.Details,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    req.UserID,
		"game":       req.Game,
		"stake":      req.Stake,
		"multiplier": res.Multiplier,
		"win":        res.Win,
	}).Info("bet settled")
	return res, nil
}

// DepositResult reports a processed deposit. Duplicate is set when the
// external reference was already credited; the call is then a no-op.
type DepositResult struct {
	Duplicate bool            `json:"duplicate"`
	Balance   decimal.Decimal `json:"balance"`
}

// Deposit credits an externally confirmed deposit exactly once. The
// external reference (e.g. a chain transaction hash) deduplicates
// webhook redeliveries: a repeated reference returns success without
// touching the balance.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal, externalRef string) (*DepositResult, error) {
	if !s.cfg.SupportsCurrency(currency) {
		return nil, validationf("unsupported currency %q", currency)
	}
	if !amount.IsPositive() {
		return nil, validationf("deposit amount must be positive")
	}
	if externalRef == "" {
		return nil, validationf("external reference is required")
	}

	var res *DepositResult
	err := s.runner.WithinTx(ctx, func(uow UnitOfWork) error {
		wallet, err := uow.Wallets().GetOrCreate(ctx, userID, currency)
		if err != nil {
			return err
		}

		// The duplicate check runs only after the wallet row lock is
		// held: concurrent deliveries of the same reference serialize
		// on the lock, and the loser's check sees the winner's
		// committed entry.
		exists, err := uow.Ledger().ExistsByExternalRef(ctx, externalRef)
		if err != nil {
			return err
		}
		if exists {
			res = &DepositResult{Duplicate: true, Balance: wallet.Balance}
			return nil
		}

		_, balance, err := appendEntry(ctx, uow, wallet, models.LedgerKindDeposit, amount, wallet.Balance, &externalRef, nil)
		if err != nil {
			return err
		}
		if err := uow.Wallets().UpdateBalance(ctx, wallet.ID, balance, wallet.LockedBalance); err != nil {
			return err
		}

		res = &DepositResult{Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Duplicate {
		s.log.WithFields(logrus.Fields{
			"user_id":      userID,
			"external_ref": externalRef,
		}).Warn("duplicate deposit ignored")
	} else {
		s.log.WithFields(logrus.Fields{
			"user_id":  userID,
			"currency": currency,
			"amount":   amount,
		}).Info("deposit credited")
	}
	return res, nil
}

// RequestWithdrawal moves funds from the available to the locked
// balance and records a pending withdrawal for operator review. The
// locked funds cannot be bet while the request is open.
func (s *Service) RequestWithdrawal(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal) (*models.LedgerEntry, error) {
	if !s.cfg.SupportsCurrency(currency) {
		return nil, validationf("unsupported currency %q", currency)
	}
	if !amount.IsPositive() {
		return nil, validationf("withdrawal amount must be positive")
	}

	var entry *models.LedgerEntry
	err := s.runner.WithinTx(ctx, func(uow UnitOfWork) error {
		wallet, err := uow.Wallets().Lock(ctx, userID, currency)
		if err != nil {
			return err
		}
		if wallet.Status != models.WalletStatusActive {
			return validationf("wallet is %s", wallet.Status)
		}
		if wallet.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		balance := wallet.Balance.Sub(amount)
		entry = &models.LedgerEntry{
			WalletID:      wallet.ID,
			UserID:        userID,
			Kind:          models.LedgerKindWithdrawal,
			Status:        models.LedgerStatusPending,
			Amount:        amount.Neg(),
			BalanceBefore: wallet.Balance,
			BalanceAfter:  balance,
		}
		if err := uow.Ledger().Create(ctx, entry); err != nil {
			return err
		}
		return uow.Wallets().UpdateBalance(ctx, wallet.ID, balance, wallet.LockedBalance.Add(amount))
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"currency": currency,
		"amount":   amount,
		"entry_id": entry.ID,
	}).Info("withdrawal requested")
	return entry, nil
}

// ResolveWithdrawal finalizes a pending withdrawal. Approval releases
// the locked funds off-platform; rejection returns them to the
// available balance through a recorded adjustment.
func (s *Service) ResolveWithdrawal(ctx context.Context, entryID uuid.UUID, approve bool) error {
	err := s.runner.WithinTx(ctx, func(uow UnitOfWork) error {
		entry, err := uow.Ledger().Get(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Kind != models.LedgerKindWithdrawal {
			return validationf("entry %s is not a withdrawal", entryID)
		}
		if entry.Status != models.LedgerStatusPending {
			return validationf("withdrawal %s is already %s", entryID, entry.Status)
		}

		wallet, err := uow.Wallets().LockByID(ctx, entry.WalletID)
		if err != nil {
			return err
		}

		amount := entry.Amount.Neg()
		if wallet.LockedBalance.LessThan(amount) {
			return fmt.Errorf("%w: locked balance %s below withdrawal %s", ErrInvariant, wallet.LockedBalance, amount)
		}
		locked := wallet.LockedBalance.Sub(amount)

		if approve {
			if err := uow.Ledger().UpdateStatus(ctx, entryID, models.LedgerStatusConfirmed); err != nil {
				return err
			}
			return uow.Wallets().UpdateBalance(ctx, wallet.ID, wallet.Balance, locked)
		}

		if err := uow.Ledger().UpdateStatus(ctx, entryID, models.LedgerStatusCancelled); err != nil {
			return err
		}
		if _, _, err := appendEntry(ctx, uow, wallet, models.LedgerKindAdminAdjustment, amount, wallet.Balance, nil, map[string]any{
			"reason":        "withdrawal_rejected",
			"withdrawal_id": entryID.String(),
		}); err != nil {
			return err
		}
		return uow.Wallets().UpdateBalance(ctx, wallet.ID, wallet.Balance.Add(amount), locked)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"entry_id": entryID,
		"approved": approve,
	}).Info("withdrawal resolved")
	return nil
}

// GetSeedInfo returns the user's fairness state for a game: the
// commitment hash, the client seed and the current nonce. A seed pair
// is created on first call so the commitment is visible before the
// first bet.
func (s *Service) GetSeedInfo(ctx context.Context, userID uuid.UUID, game string) (*models.SeedPair, error) {
	if _, ok := games.Get(game); !ok {
		return nil, validationf("unknown game %q", game)
	}

	var pair *models.SeedPair
	err := s.runner.WithinTx(ctx, func(uow UnitOfWork) error {
		var err error
		pair, err = uow.Seeds().GetActive(ctx, userID, game)
		if errors.Is(err, ErrNotFound) {
			pair, err = s.createSeedPair(ctx, uow, userID, game, engine.DefaultClientSeed)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// SetClientSeed replaces the player's client seed for a game. Future
// rounds derive from the new seed; settled rounds are unaffected.
func (s *Service) SetClientSeed(ctx context.Context, userID uuid.UUID, game, clientSeed string) error {
	if _, ok := games.Get(game); !ok {
		return validationf("unknown game %q", game)
	}
	if clientSeed == "" || len(clientSeed) > maxClientSeedLen {
		return validationf("client seed must be 1 to %d characters", maxClientSeedLen)
	}

	return s.runner.WithinTx(ctx, func(uow UnitOfWork) error {
		err := uow.Seeds().SetClientSeed(ctx, userID, game, clientSeed)
		if errors.Is(err, ErrNotFound) {
			_, err = s.createSeedPair(ctx, uow, userID, game, clientSeed)
		}
		return err
	})
}

// RotateSeed reveals the current server seed and commits to a fresh
// one. The revealed pair lets the player verify every round settled
// under it; the new pair keeps the old client seed and starts at
// nonce zero.
func (s *Service) RotateSeed(ctx context.Context, userID uuid.UUID, game string) (revealed, next *models.SeedPair, err error) {
	if _, ok := games.Get(game); !ok {
		return nil, nil, validationf("unknown game %q", game)
	}

	err = s.runner.WithinTx(ctx, func(uow UnitOfWork) error {
		var err error
		revealed, err = uow.Seeds().Reveal(ctx, userID, game)
		if err != nil {
			return err
		}
		next, err = s.createSeedPair(ctx, uow, userID, game, revealed.ClientSeed)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"game":    game,
	}).Info("seed pair rotated")
	return revealed, next, nil
}

// VerifyRound re-derives a settled round from a revealed server seed.
// It is pure: no storage access, no state change. The returned hash
// must match the commitment published before the round.
func (s *Service) VerifyRound(game, serverSeed, clientSeed string, nonce uint64, params games.Params) (*games.Result, string, error) {
	g, ok := games.Get(game)
	if !ok {
		return nil, "", validationf("unknown game %q", game)
	}
	if serverSeed == "" || clientSeed == "" {
		return nil, "", validationf("server and client seeds are required")
	}

	seeds := games.Seeds{Server: serverSeed, Client: clientSeed}
	result, err := g.Evaluate(seeds, nonce, s.cfg.GameConfig(game), params)
	if err != nil {
		return nil, "", validationf("invalid verification parameters: %v", err)
	}
	return &result, engine.HashServerSeed(serverSeed), nil
}

// ListBets returns the user's most recent settled rounds.
func (s *Service) ListBets(ctx context.Context, userID uuid.UUID, limit int) ([]models.BetRound, error) {
	if limit <= 0 {
		limit = defaultBetLimit
	}
	if limit > maxBetLimit {
		limit = maxBetLimit
	}

	var bets []models.BetRound
	err := s.runner.WithinTx(ctx, func(uow UnitOfWork) error {
		var err error
		bets, err = uow.Bets().ListByUser(ctx, userID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bets, nil
}

func (s *Service) validateStake(currency string, stake decimal.Decimal) error {
	if !s.cfg.SupportsCurrency(currency) {
		return validationf("unsupported currency %q", currency)
	}
	if stake.LessThan(s.cfg.MinStake) {
		return validationf("stake %s below minimum %s", stake, s.cfg.MinStake)
	}
	if stake.GreaterThan(s.cfg.MaxStake) {
		return validationf("stake %s above maximum %s", stake, s.cfg.MaxStake)
	}
	return nil
}

// checkSettlement runs the defensive pre-commit checks. A failure
// aborts the transaction before any money moves.
func (s *Service) checkSettlement(multiplier, payout decimal.Decimal) error {
	if multiplier.IsNegative() || payout.IsNegative() {
		return fmt.Errorf("%w: negative multiplier %s or payout %s", ErrInvariant, multiplier, payout)
	}
	if s.cfg.MaxMultiplier.IsPositive() && multiplier.GreaterThan(s.cfg.MaxMultiplier) {
		return fmt.Errorf("%w: multiplier %s exceeds cap %s", ErrInvariant, multiplier, s.cfg.MaxMultiplier)
	}
	return nil
}

// consumeSeed advances the user's nonce under the seed row lock and
// returns the pair with the nonce to use for this round. The pair is
// created lazily on the first bet.
func (s *Service) consumeSeed(ctx context.Context, uow UnitOfWork, userID uuid.UUID, game string) (*models.SeedPair, error) {
	pair, err := uow.Seeds().ConsumeNonce(ctx, userID, game)
	if errors.Is(err, ErrNotFound) {
		if _, err = s.createSeedPair(ctx, uow, userID, game, engine.DefaultClientSeed); err != nil {
			return nil, err
		}
		pair, err = uow.Seeds().ConsumeNonce(ctx, userID, game)
	}
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *Service) createSeedPair(ctx context.Context, uow UnitOfWork, userID uuid.UUID, game, clientSeed string) (*models.SeedPair, error) {
	serverSeed, err := engine.NewServerSeed()
	if err != nil {
		return nil, err
	}
	pair := &models.SeedPair{
		ID:             uuid.New(),
		UserID:         userID,
		Game:           game,
		ServerSeed:     serverSeed,
		ServerSeedHash: engine.HashServerSeed(serverSeed),
		ClientSeed:     clientSeed,
	}
	if err := uow.Seeds().Create(ctx, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

// appendEntry writes one confirmed ledger entry and returns it with
// the running balance after the mutation.
func appendEntry(ctx context.Context, uow UnitOfWork, wallet *models.Wallet, kind models.LedgerKind, amount, balanceBefore decimal.Decimal, externalRef *string, metadata map[string]any) (*models.LedgerEntry, decimal.Decimal, error) {
	after := balanceBefore.Add(amount)
	entry := &models.LedgerEntry{
		WalletID:      wallet.ID,
		UserID:        wallet.UserID,
		Kind:          kind,
		Status:        models.LedgerStatusConfirmed,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  after,
		ExternalRef:   externalRef,
		Metadata:      metadata,
	}
	if err := uow.Ledger().Create(ctx, entry); err != nil {
		return nil, decimal.Zero, err
	}
	return entry, after, nil
}
