// Package session holds the transient state of multi-round games
// between a bet's opening and its resolution.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State is the explicit finite-state-machine value of a session.
// There is no idle state on disk: a session exists only while active,
// and resolution destroys it.
type State string

const (
	StateActive       State = "active"
	StateResolvedWin  State = "resolved_win"
	StateResolvedLoss State = "resolved_loss"
)

// ErrNotFound marks a missing or already-resolved session.
var ErrNotFound = errors.New("session not found")

// Session is one open multi-round bet. The stake is already debited
// (escrowed) when the session exists; the seed material is fixed at
// start so every later reveal derives from the same committed round.
type Session struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Game     string    `json:"game"`
	Currency string    `json:"currency"`

	Stake          decimal.Decimal `json:"stake"`
	ServerSeed     string          `json:"server_seed"`
	ServerSeedHash string          `json:"server_seed_hash"`
	ClientSeed     string          `json:"client_seed"`
	Nonce          uint64          `json:"nonce"`

	// StakeLedgerID links the escrow debit written when the session
	// started; the bet round recorded at resolution references it.
	StakeLedgerID uuid.UUID `json:"stake_ledger_id"`

	State      State           `json:"state"`
	Round      int             `json:"round"`
	Multiplier decimal.Decimal `json:"multiplier"`

	// Mines
	MineCount     int   `json:"mine_count,omitempty"`
	RevealedTiles []int `json:"revealed_tiles,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Revealed reports whether a mines tile was already revealed.
func (s *Session) Revealed(tile int) bool {
	for _, t := range s.RevealedTiles {
		if t == tile {
			return true
		}
	}
	return false
}
