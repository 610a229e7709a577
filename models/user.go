package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User represents a wallet-keyed account. Created on first successful
// authentication, never deleted.
type User struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	WalletAddress      string    `json:"wallet_address" db:"wallet_address"`
	DisplayName        string    `json:"display_name" db:"display_name"`
	Email              *string   `json:"email,omitempty" db:"email"`
	Username           *string   `json:"username,omitempty" db:"username"`
	AvatarURL          *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	TotalSplitsCreated int64     `json:"total_splits_created" db:"total_splits_created"`
	TotalSplitsJoined  int64     `json:"total_splits_joined" db:"total_splits_joined"`
	TotalAmountSplit   float64   `json:"total_amount_split" db:"total_amount_split"`
	LastActiveAt       time.Time `json:"last_active_at" db:"last_active_at"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// DefaultDisplayName derives a deterministic display name from a wallet
// address, used when a user is provisioned on first login.
func DefaultDisplayName(walletAddress string) string {
	addr := NormalizeAddress(walletAddress)
	if len(addr) < 8 {
		return "user"
	}
	return fmt.Sprintf("user_%s", addr[2:8])
}

type AuthRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

type AuthResponse struct {
	WalletAddress string `json:"walletAddress"`
	DisplayName   string `json:"displayName"`
	Token         string `json:"token"`
}
