package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerKind is the type of balance mutation a ledger entry records.
type LedgerKind string

const (
	LedgerKindBetStake        LedgerKind = "bet_stake"
	LedgerKindBetPayout       LedgerKind = "bet_payout"
	LedgerKindDeposit         LedgerKind = "deposit"
	LedgerKindWithdrawal      LedgerKind = "withdrawal"
	LedgerKindAdminAdjustment LedgerKind = "admin_adjustment"
)

// LedgerStatus tracks the lifecycle of an entry. State changes are
// recorded as explicit transitions (pending -> confirmed/cancelled),
// never as silent edits.
type LedgerStatus string

const (
	LedgerStatusPending   LedgerStatus = "pending"
	LedgerStatusConfirmed LedgerStatus = "confirmed"
	LedgerStatusCancelled LedgerStatus = "cancelled"
	LedgerStatusFailed    LedgerStatus = "failed"
)

// LedgerEntry is an immutable record of one balance mutation.
// BalanceAfter always equals BalanceBefore plus the signed Amount,
// matching the wallet mutation performed in the same transaction.
type LedgerEntry struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	WalletID      uuid.UUID       `db:"wallet_id" json:"wallet_id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	Kind          LedgerKind      `db:"kind" json:"kind"`
	Status        LedgerStatus    `db:"status" json:"status"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	// ExternalRef deduplicates credits driven by outside systems,
	// e.g. a blockchain transaction hash from a deposit webhook.
	ExternalRef *string        `db:"external_ref" json:"external_ref,omitempty"`
	Metadata    map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
