package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction log status constants
const (
	TxStatusPending  = "pending"
	TxStatusSuccess  = "success"
	TxStatusFailed   = "failed"
	TxStatusReverted = "reverted"
)

// ConfirmationThreshold is the block depth at which a transaction is
// considered final.
const ConfirmationThreshold = 12

// TransactionLog tracks one on-chain transaction tied to a split.
type TransactionLog struct {
	ID            uuid.UUID `json:"id" db:"id"`
	SplitID       int64     `json:"split_id" db:"split_id"`
	TxHash        string    `json:"tx_hash" db:"tx_hash"`
	FromAddress   string    `json:"from_address" db:"from_address"`
	TxType        string    `json:"tx_type" db:"tx_type"` // "create" or "payment"
	Status        string    `json:"status" db:"status"`
	BlockNumber   int64     `json:"block_number" db:"block_number"`
	Confirmations int       `json:"confirmations" db:"confirmations"`
	IsConfirmed   bool      `json:"is_confirmed" db:"is_confirmed"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
