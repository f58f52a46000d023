package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tradege/stek-sub008/internal/models"
)

// SeedRepository manages the per-user, per-game provable-fairness
// seed pairs.
type SeedRepository struct {
	q queryable
}

func NewSeedRepository(db *DB) *SeedRepository {
	return &SeedRepository{q: db.Pool}
}

func NewSeedRepositoryWithTx(tx pgx.Tx) *SeedRepository {
	return &SeedRepository{q: tx}
}

const seedColumns = `id, user_id, game, server_seed, server_seed_hash, client_seed, nonce, revealed, created_at, rotated_at`

func scanSeed(row pgx.Row) (*models.SeedPair, error) {
	var s models.SeedPair
	var nonce int64
	err := row.Scan(&s.ID, &s.UserID, &s.Game, &s.ServerSeed, &s.ServerSeedHash,
		&s.ClientSeed, &nonce, &s.Revealed, &s.CreatedAt, &s.RotatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("seed pair: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan seed pair: %w", err)
	}
	s.Nonce = uint64(nonce)
	return &s, nil
}

// GetActive returns the unrevealed seed pair for a user and game.
func (r *SeedRepository) GetActive(ctx context.Context, userID uuid.UUID, game string) (*models.SeedPair, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+seedColumns+` FROM seed_pairs WHERE user_id = $1 AND game = $2 AND NOT revealed`,
		userID, game)
	return scanSeed(row)
}

// Create inserts a fresh committed seed pair.
func (r *SeedRepository) Create(ctx context.Context, pair *models.SeedPair) error {
	pair.ID = uuid.New()
	row := r.q.QueryRow(ctx, `
		INSERT INTO seed_pairs (id, user_id, game, server_seed, server_seed_hash, client_seed, nonce)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		pair.ID, pair.UserID, pair.Game, pair.ServerSeed, pair.ServerSeedHash,
		pair.ClientSeed, int64(pair.Nonce))
	if err := row.Scan(&pair.CreatedAt); err != nil {
		return fmt.Errorf("failed to create seed pair: %w", err)
	}
	return nil
}

// ConsumeNonce locks the active seed pair, increments its nonce and
// returns the pair carrying the nonce to use for this round. The lock
// rides the settlement transaction so nonces stay strictly monotonic
// under concurrent play.
func (r *SeedRepository) ConsumeNonce(ctx context.Context, userID uuid.UUID, game string) (*models.SeedPair, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE seed_pairs SET nonce = nonce + 1
		WHERE user_id = $1 AND game = $2 AND NOT revealed
		RETURNING `+seedColumns,
		userID, game)
	return scanSeed(row)
}

// SetClientSeed replaces the player's client seed on the active pair.
func (r *SeedRepository) SetClientSeed(ctx context.Context, userID uuid.UUID, game, clientSeed string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE seed_pairs SET client_seed = $3
		WHERE user_id = $1 AND game = $2 AND NOT revealed`,
		userID, game, clientSeed)
	if err != nil {
		return fmt.Errorf("failed to set client seed: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("active seed pair: %w", ErrNotFound)
	}
	return nil
}

// Reveal marks the active pair revealed so its server seed becomes
// public and no further rounds can be played against it.
func (r *SeedRepository) Reveal(ctx context.Context, userID uuid.UUID, game string) (*models.SeedPair, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE seed_pairs SET revealed = TRUE, rotated_at = now()
		WHERE user_id = $1 AND game = $2 AND NOT revealed
		RETURNING `+seedColumns,
		userID, game)
	return scanSeed(row)
}
