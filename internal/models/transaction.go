package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxnDeposit    TransactionType = "deposit"
	TxnWithdrawal TransactionType = "withdrawal"
)

type TransactionStatus string

const (
	TxnPending  TransactionStatus = "pending"
	TxnApproved TransactionStatus = "approved"
	TxnRejected TransactionStatus = "rejected"
)

// Transaction mirrors a row of player_transactions. Rows are created by the
// player-facing deposit flow; this service only ever flips pending rows to
// approved or rejected.
type Transaction struct {
	ID              string            `json:"id"`
	PlayerPhone     string            `json:"player_phone"`
	Amount          decimal.Decimal   `json:"amount"`
	Type            TransactionType   `json:"transaction_type"`
	Status          TransactionStatus `json:"status"`
	Description     string            `json:"description"`
	ImageProof      *string           `json:"image_proof,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
	ProcessedBy     *string           `json:"processed_by,omitempty"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
}

func (t Transaction) IsPendingDeposit() bool {
	return t.Type == TxnDeposit && t.Status == TxnPending
}
