package api

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradege/stek-sub008/internal/games"
	"github.com/tradege/stek-sub008/internal/models"
)

// Stake amounts arrive as JSON numbers or strings; decimal handles
// both. Range checks live in the settlement service, not here.

type playRequest struct {
	Game     string          `json:"game" validate:"required"`
	Currency string          `json:"currency" validate:"required"`
	Stake    decimal.Decimal `json:"stake"`
	Params   games.Params    `json:"params"`
}

type verifyRequest struct {
	Game       string       `json:"game" validate:"required"`
	ServerSeed string       `json:"server_seed" validate:"required"`
	ClientSeed string       `json:"client_seed" validate:"required"`
	Nonce      uint64       `json:"nonce"`
	Params     games.Params `json:"params"`
}

type verifyResponse struct {
	ServerSeedHash string        `json:"server_seed_hash"`
	Result         *games.Result `json:"result"`
}

type startSessionRequest struct {
	Game      string          `json:"game" validate:"required"`
	Currency  string          `json:"currency" validate:"required"`
	Stake     decimal.Decimal `json:"stake"`
	MineCount int             `json:"mine_count"`
}

type advanceSessionRequest struct {
	Game      string `json:"game" validate:"required"`
	Tile      int    `json:"tile"`
	Direction int    `json:"direction"`
}

type cashOutRequest struct {
	Game string `json:"game" validate:"required"`
}

type setClientSeedRequest struct {
	ClientSeed string `json:"client_seed" validate:"required,max=64"`
}

// revealedSeed exposes the server seed of a rotated pair. The model's
// JSON shape hides the seed, which is right everywhere except here.
type revealedSeed struct {
	ServerSeed     string `json:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          uint64 `json:"nonce"`
}

type rotateSeedResponse struct {
	Revealed revealedSeed     `json:"revealed"`
	Next     *models.SeedPair `json:"next"`
}

type withdrawalRequest struct {
	Currency string          `json:"currency" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

type resolveWithdrawalRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

type depositWebhookRequest struct {
	UserID   uuid.UUID       `json:"user_id" validate:"required"`
	Currency string          `json:"currency" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	TxHash   string          `json:"tx_hash" validate:"required"`
}
