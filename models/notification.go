package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types
const (
	NotificationSplitCreated = "split_created"
	NotificationPaymentMade  = "payment_made"
	NotificationReminder     = "payment_reminder"
)

// Notification is an auxiliary record addressed to a wallet, optionally
// tied to a split.
type Notification struct {
	ID            uuid.UUID `json:"id" db:"id"`
	WalletAddress string    `json:"wallet_address" db:"wallet_address"`
	SplitID       *int64    `json:"split_id,omitempty" db:"split_id"`
	Type          string    `json:"type" db:"type"`
	Title         string    `json:"title" db:"title"`
	Message       string    `json:"message" db:"message"`
	Channels      []string  `json:"channels" db:"channels"`
	IsSent        bool      `json:"is_sent" db:"is_sent"`
	IsRead        bool      `json:"is_read" db:"is_read"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
