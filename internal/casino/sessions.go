package casino

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tradege/stek-sub008/internal/games"
	"github.com/tradege/stek-sub008/internal/models"
	"github.com/tradege/stek-sub008/internal/session"
)

// StartSessionRequest opens a multi-round bet. MineCount is read for
// mines only.
type StartSessionRequest struct {
	UserID    uuid.UUID
	Game      string
	Currency  string
	Stake     decimal.Decimal
	MineCount int
}

// AdvanceRequest plays one round of an open session. Tile is read for
// mines, Direction for penalty.
type AdvanceRequest struct {
	UserID    uuid.UUID
	Game      string
	SessionID uuid.UUID
	Tile      int
	Direction int
}

// SessionView is the externally visible state of a session. Seed
// material stays hidden until the session resolves; Details carries
// the revealed layout on resolution.
type SessionView struct {
	ID             uuid.UUID        `json:"id"`
	Game           string           `json:"game"`
	Currency       string           `json:"currency"`
	Stake          decimal.Decimal  `json:"stake"`
	State          session.State    `json:"state"`
	Round          int              `json:"round"`
	Multiplier     decimal.Decimal  `json:"multiplier"`
	Payout         decimal.Decimal  `json:"payout"`
	Balance        *decimal.Decimal `json:"balance,omitempty"`
	ServerSeedHash string           `json:"server_seed_hash"`
	RevealedTiles  []int            `json:"revealed_tiles,omitempty"`
	Details        map[string]any   `json:"details,omitempty"`
}

// StartSession escrows the stake and opens a session for a
// multi-round game. Only one session per (user, game) may be open at
// a time; the seed pair consumed here fixes every later round.
func (s *Service) StartSession(ctx context.Context, req StartSessionRequest) (*SessionView, error) {
	game, ok := games.Get(req.Game)
	if !ok {
		return nil, validationf("unknown game %q", req.Game)
	}
	if !game.Spec().MultiRound {
		return nil, validationf("game %q settles in one round, use play instead", req.Game)
	}
	if err := s.validateStake(req.Currency, req.Stake); err != nil {
		return nil, err
	}
	if req.Game == games.GameMines {
		if req.MineCount < games.MinesMinCount || req.MineCount > games.MinesMaxCount {
			return nil, validationf("mine count must be between %d and %d", games.MinesMinCount, games.MinesMaxCount)
		}
	}

	var view *SessionView
	err := s.sessions.WithLock(req.UserID, req.Game, func() error {
		if _, active, err := s.sessions.Store().ActiveID(ctx, req.UserID, req.Game); err != nil {
			return err
		} else if active {
			return ErrSessionActive
		}

		var sess *session.Session
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

			stakeEntry, balance, err := appendEntry(ctx, uow, wallet, models.LedgerKindBetStake, req.Stake.Neg(), wallet.Balance, nil, map[string]any{
				"game":  req.Game,
				"nonce": pair.Nonce,
			})
			if err != nil {
				return err
			}
			if err := uow.Wallets().UpdateBalance(ctx, wallet.ID, balance, wallet.LockedBalance); err != nil {
				return err
			}

			now := time.Now().UTC()
			sess = &session.Session{
				ID:             uuid.New(),
				UserID:         req.UserID,
				Game:           req.Game,
				Currency:       req.Currency,
				Stake:          req.Stake,
				ServerSeed:     pair.ServerSeed,
				ServerSeedHash: pair.ServerSeedHash,
				ClientSeed:     pair.ClientSeed,
				Nonce:          pair.Nonce,
				StakeLedgerID:  stakeEntry.ID,
				State:          session.StateActive,
				Multiplier:     decimal.NewFromInt(1),
				MineCount:      req.MineCount,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			return nil
		})
		if err != nil {
			return err
		}

		if err := s.sessions.Store().Save(ctx, sess); err != nil {
			// The stake is already escrowed. Leave the trail in the
			// ledger and surface the failure; operators reconcile
			// through the recorded stake entry.
			s.log.WithError(err).WithField("session_id", sess.ID).Error("failed to persist session after stake debit")
			return err
		}

		view = s.viewOf(sess, decimal.Zero, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    req.UserID,
		"game":       req.Game,
		"session_id": view.ID,
		"stake":      req.Stake,
	}).Info("session started")
	return view, nil
}

// AdvanceSession plays one round of an open session: a tile pick for
// mines, a shot direction for penalty. A losing round resolves the
// session immediately; reaching the final round cashes out
// automatically.
func (s *Service) AdvanceSession(ctx context.Context, req AdvanceRequest) (*SessionView, error) {
	var view *SessionView
	err := s.sessions.WithLock(req.UserID, req.Game, func() error {
		sess, err := s.loadActive(ctx, req.UserID, req.Game, req.SessionID)
		if err != nil {
			return err
		}

		switch sess.Game {
		case games.GameMines:
			view, err = s.advanceMines(ctx, sess, req.Tile)
		case games.GamePenalty:
			view, err = s.advancePenalty(ctx, sess, req.Direction)
		default:
			err = fmt.Errorf("%w: session for unroutable game %q", ErrInvariant, sess.Game)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CashOut settles an open session at its current multiplier. At least
// one winning round must have been played.
func (s *Service) CashOut(ctx context.Context, userID uuid.UUID, game string, sessionID uuid.UUID) (*SessionView, error) {
	var view *SessionView
	err := s.sessions.WithLock(userID, game, func() error {
		sess, err := s.loadActive(ctx, userID, game, sessionID)
		if err != nil {
			return err
		}
		if sess.Round < 1 {
			return fmt.Errorf("%w: no rounds played yet", ErrSessionState)
		}

		view, err = s.resolveWin(ctx, sess, s.resolutionDetails(sess))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sessionID,
		"multiplier": view.Multiplier,
		"payout":     view.Payout,
	}).Info("session cashed out")
	return view, nil
}

// GetSession returns the visible state of an open session.
func (s *Service) GetSession(ctx context.Context, userID uuid.UUID, game string, sessionID uuid.UUID) (*SessionView, error) {
	var view *SessionView
	err := s.sessions.WithLock(userID, game, func() error {
		sess, err := s.loadActive(ctx, userID, game, sessionID)
		if err != nil {
			return err
		}
		view = s.viewOf(sess, decimal.Zero, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) loadActive(ctx context.Context, userID uuid.UUID, game string, sessionID uuid.UUID) (*session.Session, error) {
	sess, err := s.sessions.Store().Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// Ownership mismatches read as absence so session ids leak
	// nothing across users.
	if sess.UserID != userID || sess.Game != game {
		return nil, session.ErrNotFound
	}
	if sess.State != session.StateActive {
		return nil, fmt.Errorf("%w: session is %s", ErrSessionState, sess.State)
	}
	return sess, nil
}

func (s *Service) advanceMines(ctx context.Context, sess *session.Session, tile int) (*SessionView, error) {
	if tile < 0 || tile >= games.MinesTotalTiles {
		return nil, validationf("tile must be between 0 and %d", games.MinesTotalTiles-1)
	}
	if sess.Revealed(tile) {
		return nil, validationf("tile %d is already revealed", tile)
	}

	seeds := games.Seeds{Server: sess.ServerSeed, Client: sess.ClientSeed}
	positions, err := games.MinePositions(seeds, sess.Nonce, sess.MineCount)
	if err != nil {
		return nil, err
	}

	for _, p := range positions {
		if p == tile {
			sess.RevealedTiles = append(sess.RevealedTiles, tile)
			return s.resolveLoss(ctx, sess, s.resolutionDetails(sess))
		}
	}

	sess.RevealedTiles = append(sess.RevealedTiles, tile)
	sess.Round = len(sess.RevealedTiles)
	sess.Multiplier, err = games.MinesMultiplier(sess.MineCount, sess.Round, s.cfg.GameConfig(sess.Game))
	if err != nil {
		return nil, err
	}
	sess.UpdatedAt = time.Now().UTC()

	// All safe tiles revealed: nothing left to pick, settle at the
	// full multiplier.
	if sess.Round == games.MinesTotalTiles-sess.MineCount {
		return s.resolveWin(ctx, sess, s.resolutionDetails(sess))
	}

	if err := s.sessions.Store().Save(ctx, sess); err != nil {
		return nil, err
	}
	return s.viewOf(sess, decimal.Zero, nil), nil
}

func (s *Service) advancePenalty(ctx context.Context, sess *session.Session, direction int) (*SessionView, error) {
	if direction < 0 || direction >= games.PenaltyDirections {
		return nil, validationf("direction must be between 0 and %d", games.PenaltyDirections-1)
	}

	seeds := games.Seeds{Server: sess.ServerSeed, Client: sess.ClientSeed}
	keeper := games.KeeperDirection(seeds, sess.Nonce, sess.Round)

	if direction == keeper {
		return s.resolveLoss(ctx, sess, s.resolutionDetails(sess))
	}

	sess.Round++
	var err error
	sess.Multiplier, err = games.PenaltyMultiplier(sess.Round, s.cfg.GameConfig(sess.Game))
	if err != nil {
		return nil, err
	}
	sess.UpdatedAt = time.Now().UTC()

	if sess.Round == games.PenaltyMaxRounds {
		return s.resolveWin(ctx, sess, s.resolutionDetails(sess))
	}

	if err := s.sessions.Store().Save(ctx, sess); err != nil {
		return nil, err
	}
	return s.viewOf(sess, decimal.Zero, nil), nil
}

// resolveWin settles an open session as a win: credit the payout under
// the wallet row lock, record the bet round, destroy the session.
func (s *Service) resolveWin(ctx context.Context, sess *session.Session, details map[string]any) (*SessionView, error) {
	payout := sess.Stake.Mul(sess.Multiplier)
	if err := s.checkSettlement(sess.Multiplier, payout); err != nil {
		return nil, err
	}

	var balance decimal.Decimal
	err := s.runner.WithinTx(ctx, func(uow UnitOfWork) error {
		wallet, err := uow.Wallets().Lock(ctx, sess.UserID, sess.Currency)
		if err != nil {
			return err
		}

		_, newBalance, err := appendEntry(ctx, uow, wallet, models.LedgerKindBetPayout, payout, wallet.Balance, nil, map[string]any{
			"game":  sess.Game,
			"nonce": sess.Nonce,
		})
		if err != nil {
			return err
		}
		if err := uow.Wallets().UpdateBalance(ctx, wallet.ID, newBalance, wallet.LockedBalance); err != nil {
			return err
		}
		balance = newBalance

		return uow.Bets().Create(ctx, s.betFromSession(sess, true, sess.Multiplier, payout, details))
	})
	if err != nil {
		return nil, err
	}

	sess.State = session.StateResolvedWin
	if err := s.destroySession(ctx, sess); err != nil {
		return nil, err
	}
	return s.viewOf(sess, payout, &balance, withDetails(details)), nil
}

// resolveLoss settles an open session as a loss. The stake was
// debited at start, so only the bet round is written.
func (s *Service) resolveLoss(ctx context.Context, sess *session.Session, details map[string]any) (*SessionView, error) {
	err := s.runner.WithinTx(ctx, func(uow UnitOfWork) error {
		return uow.Bets().Create(ctx, s.betFromSession(sess, false, decimal.Zero, decimal.Zero, details))
	})
	if err != nil {
		return nil, err
	}

	sess.State = session.StateResolvedLoss
	sess.Multiplier = decimal.Zero
	if err := s.destroySession(ctx, sess); err != nil {
		return nil, err
	}
	return s.viewOf(sess, decimal.Zero, nil, withDetails(details)), nil
}

// destroySession removes a settled session from the store. The
// settlement transaction already committed, so the stored copy must
// not stay readable as active: if the delete fails, the terminal
// state is written in its place, and only when neither write lands
// does the call fail. The ledger entries remain the reconciliation
// trail either way.
func (s *Service) destroySession(ctx context.Context, sess *session.Session) error {
	delErr := s.sessions.Store().Delete(ctx, sess)
	if delErr == nil {
		return nil
	}
	s.log.WithError(delErr).WithField("session_id", sess.ID).Error("failed to delete resolved session")

	if saveErr := s.sessions.Store().Save(ctx, sess); saveErr != nil {
		s.log.WithError(saveErr).WithField("session_id", sess.ID).Error("failed to mark session resolved")
		return fmt.Errorf("destroying session %s: %w", sess.ID, saveErr)
	}
	return nil
}

func (s *Service) betFromSession(sess *session.Session, win bool, multiplier, payout decimal.Decimal, details map[string]any) *models.BetRound {
	return &models.BetRound{
		ID:             uuid.New(),
		UserID:         sess.UserID,
		Game:           sess.Game,
		Currency:       sess.Currency,
		Stake:          sess.Stake,
		ServerSeedHash: sess.ServerSeedHash,
		ClientSeed:     sess.ClientSeed,
		Nonce:          sess.Nonce,
		Outcome:        multiplier.InexactFloat64(),
		Multiplier:     multiplier,
		Payout:         payout,
		Win:            win,
		LedgerEntryID:  sess.StakeLedgerID,
		Details:        details,
	}
}

// resolutionDetails exposes the hidden layout once a session resolves.
func (s *Service) resolutionDetails(sess *session.Session) map[string]any {
	seeds := games.Seeds{Server: sess.ServerSeed, Client: sess.ClientSeed}
	switch sess.Game {
	case games.GameMines:
		positions, err := games.MinePositions(seeds, sess.Nonce, sess.MineCount)
		if err != nil {
			return nil
		}
		return map[string]any{
			"mine_count":     sess.MineCount,
			"mine_positions": positions,
			"revealed_tiles": sess.RevealedTiles,
		}
	case games.GamePenalty:
		dives := make([]int, games.PenaltyMaxRounds)
		for i := range dives {
			dives[i] = games.KeeperDirection(seeds, sess.Nonce, i)
		}
		return map[string]any{
			"keeper_dives":  dives,
			"rounds_scored": sess.Round,
		}
	}
	return nil
}

type viewOption func(*SessionView)

func withDetails(details map[string]any) viewOption {
	return func(v *SessionView) { v.Details = details }
}

func (s *Service) viewOf(sess *session.Session, payout decimal.Decimal, balance *decimal.Decimal, opts ...viewOption) *SessionView {
	v := &SessionView{
		ID:             sess.ID,
		Game:           sess.Game,
		Currency:       sess.Currency,
		Stake:          sess.Stake,
		State:          sess.State,
		Round:          sess.Round,
		Multiplier:     sess.Multiplier,
		Payout:         payout,
		Balance:        balance,
		ServerSeedHash: sess.ServerSeedHash,
		RevealedTiles:  append([]int(nil), sess.RevealedTiles...),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}
