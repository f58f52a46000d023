package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds one user's balance in one currency. Wallets are created
// lazily on first deposit or bet and never deleted; an account is
// soft-disabled through its status instead.
type Wallet struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	Currency       string          `db:"currency" json:"currency"`
	Balance        decimal.Decimal `db:"balance" json:"balance"`
	LockedBalance  decimal.Decimal `db:"locked_balance" json:"locked_balance"`
	DepositAddress *string         `db:"deposit_address" json:"deposit_address,omitempty"`
	Status         WalletStatus    `db:"status" json:"status"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

type WalletStatus string

const (
	WalletStatusActive   WalletStatus = "active"
	WalletStatusDisabled WalletStatus = "disabled"
)
