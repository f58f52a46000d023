package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetRound is one settled play of a game, kept for history and
// fairness verification. The outcome is re-derivable from
// (server seed, client seed, nonce) once the server seed is revealed,
// and payout always equals stake times multiplier.
type BetRound struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	Game           string          `db:"game" json:"game"`
	Currency       string          `db:"currency" json:"currency"`
	Stake          decimal.Decimal `db:"stake" json:"stake"`
	ServerSeedHash string          `db:"server_seed_hash" json:"server_seed_hash"`
	ClientSeed     string          `db:"client_seed" json:"client_seed"`
	Nonce          uint64          `db:"nonce" json:"nonce"`
	Outcome        float64         `db:"outcome" json:"outcome"`
	Multiplier     decimal.Decimal `db:"multiplier" json:"multiplier"`
	Payout         decimal.Decimal `db:"payout" json:"payout"`
	Win            bool            `db:"win" json:"win"`
	// LedgerEntryID links the stake entry written in the same
	// settlement transaction.
	LedgerEntryID uuid.UUID      `db:"ledger_entry_id" json:"ledger_entry_id"`
	Details       map[string]any `db:"details" json:"details,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// SeedPair is a user's provable-fairness state for one game: the
// committed secret server seed, the player's client seed and the
// nonce, monotonic per user and game. The server seed is revealed
// only after rotation.
type SeedPair struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	Game           string     `db:"game" json:"game"`
	ServerSeed     string     `db:"server_seed" json:"-"`
	ServerSeedHash string     `db:"server_seed_hash" json:"server_seed_hash"`
	ClientSeed     string     `db:"client_seed" json:"client_seed"`
	Nonce          uint64     `db:"nonce" json:"nonce"`
	Revealed       bool       `db:"revealed" json:"revealed"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	RotatedAt      *time.Time `db:"rotated_at" json:"rotated_at,omitempty"`
}
