package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tradege/stek-sub008/internal/models"
)

// BetRepository persists settled bet rounds.
type BetRepository struct {
	q queryable
}

func NewBetRepository(db *DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

func NewBetRepositoryWithTx(tx pgx.Tx) *BetRepository {
	return &BetRepository{q: tx}
}

// Create inserts a bet round, assigning its id and timestamp.
func (r *BetRepository) Create(ctx context.Context, bet *models.BetRound) error {
	bet.ID = uuid.New()
	row := r.q.QueryRow(ctx, `
		INSERT INTO bet_rounds
			(id, user_id, game, currency, stake, server_seed_hash, client_seed, nonce,
			 outcome, multiplier, payout, win, ledger_entry_id, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at`,
		bet.ID, bet.UserID, bet.Game, bet.Currency, bet.Stake, bet.ServerSeedHash,
		bet.ClientSeed, int64(bet.Nonce), bet.Outcome, bet.Multiplier, bet.Payout,
		bet.Win, bet.LedgerEntryID, bet.Details)
	if err := row.Scan(&bet.CreatedAt); err != nil {
		return fmt.Errorf("failed to create bet round: %w", err)
	}
	return nil
}

// ListByUser returns a user's most recent rounds, newest first.
func (r *BetRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.BetRound, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, game, currency, stake, server_seed_hash, client_seed, nonce,
		       outcome, multiplier, payout, win, ledger_entry_id, details, created_at
		FROM bet_rounds WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bet rounds: %w", err)
	}
	defer rows.Close()

	var bets []models.BetRound
	for rows.Next() {
		var b models.BetRound
		var nonce int64
		if err := rows.Scan(&b.ID, &b.UserID, &b.Game, &b.Currency, &b.Stake,
			&b.ServerSeedHash, &b.ClientSeed, &nonce, &b.Outcome, &b.Multiplier,
			&b.Payout, &b.Win, &b.LedgerEntryID, &b.Details, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bet round: %w", err)
		}
		b.Nonce = uint64(nonce)
		bets = append(bets, b)
	}
	return bets, rows.Err()
}
