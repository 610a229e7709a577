package models

import (
	"fmt"
	"math"
	"time"
)

// Split status constants
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	// MaxParticipants bounds the participant list of a single split.
	MaxParticipants = 50
	// AmountTolerance is the allowed drift between totalAmount and the sum
	// of participant shares.
	AmountTolerance = 0.01
	// DefaultExpiry is applied when a split is created without an explicit
	// expiry timestamp.
	DefaultExpiry = 30 * 24 * time.Hour
)

// Participant is one payer's share within a split. It is embedded in its
// parent split and has no independent identity.
type Participant struct {
	WalletAddress  string     `json:"walletAddress"`
	Name           string     `json:"name,omitempty"`
	AmountDue      float64    `json:"amountDue"`
	HasPaid        bool       `json:"hasPaid"`
	PaidAt         *time.Time `json:"paidAt,omitempty"`
	PaymentTxHash  string     `json:"paymentTxHash,omitempty"`
	ReminderCount  int        `json:"reminderCount"`
	LastRemindedAt *time.Time `json:"lastRemindedAt,omitempty"`
	// Paid mirrors HasPaid on the requester's own entry in enriched list
	// views. Never persisted.
	Paid *bool `json:"paid,omitempty"`
}

// Split is a shared-bill record apportioning a total amount across
// participants, linked to an on-chain registration.
type Split struct {
	SplitID         int64         `json:"split_id" db:"split_id"`
	ContractAddress string        `json:"contract_address" db:"contract_address"`
	TxHash          string        `json:"tx_hash" db:"tx_hash"`
	BlockNumber     int64         `json:"block_number" db:"block_number"`
	IsConfirmed     bool          `json:"is_confirmed" db:"is_confirmed"`
	CreatorAddress  string        `json:"creator_address" db:"creator_address"`
	Description     string        `json:"description" db:"description"`
	TotalAmount     float64       `json:"total_amount" db:"total_amount"`
	Currency        string        `json:"currency" db:"currency"`
	Status          string        `json:"status" db:"status"`
	IsCompleted     bool          `json:"is_completed" db:"is_completed"`
	IsCancelled     bool          `json:"is_cancelled" db:"is_cancelled"`
	Participants    []Participant `json:"participants" db:"participants"`
	Category        *string       `json:"category,omitempty" db:"category"`
	Note            *string       `json:"note,omitempty" db:"note"`
	ImageURL        *string       `json:"image_url,omitempty" db:"image_url"`
	ExpiresAt       time.Time     `json:"expires_at" db:"expires_at"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// ParticipantInput is the caller-supplied shape of one share.
type ParticipantInput struct {
	WalletAddress string  `json:"walletAddress" binding:"required"`
	Name          string  `json:"name"`
	AmountDue     float64 `json:"amountDue"`
}

type CreateSplitRequest struct {
	Description  string             `json:"description" binding:"required"`
	TotalAmount  float64            `json:"totalAmount" binding:"required"`
	Currency     string             `json:"currency"`
	Participants []ParticipantInput `json:"participants" binding:"required"`
	Category     string             `json:"category"`
	Note         string             `json:"note"`
	ImageURL     string             `json:"imageUrl"`
}

type CreateSplitResponse struct {
	SplitID         int64  `json:"splitId"`
	ContractAddress string `json:"contractAddress"`
	TxHash          string `json:"txHash"`
}

// SplitView is a split enriched for a particular requester.
type SplitView struct {
	Split
	IsCreator           bool   `json:"is_creator"`
	CounterpartyAddress string `json:"counterparty_address,omitempty"`
	CounterpartyName    string `json:"counterparty_name,omitempty"`
	YouPaid             bool   `json:"you_paid"`
}

// ListFilter carries the optional status/limit/skip query parameters.
type ListFilter struct {
	Status string
	Limit  int
	Skip   int
}

// ParticipantSum returns the sum of all participant shares.
func (s *Split) ParticipantSum() float64 {
	var sum float64
	for _, p := range s.Participants {
		sum += p.AmountDue
	}
	return sum
}

// TotalPaid returns the amount already settled by participants.
func (s *Split) TotalPaid() float64 {
	var sum float64
	for _, p := range s.Participants {
		if p.HasPaid {
			sum += p.AmountDue
		}
	}
	return sum
}

// PaidCount returns how many participants have paid.
func (s *Split) PaidCount() int {
	n := 0
	for _, p := range s.Participants {
		if p.HasPaid {
			n++
		}
	}
	return n
}

// AllPaid reports whether every participant has settled their share.
func (s *Split) AllPaid() bool {
	if len(s.Participants) == 0 {
		return false
	}
	return s.PaidCount() == len(s.Participants)
}

// CompletionPercentage returns the paid fraction of the participant list
// as a 0-100 percentage.
func (s *Split) CompletionPercentage() float64 {
	if len(s.Participants) == 0 {
		return 0
	}
	return float64(s.PaidCount()) / float64(len(s.Participants)) * 100
}

// IsExpired reports whether the split's expiry has passed.
func (s *Split) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// FindParticipant returns the participant entry for a wallet address,
// or nil if the address is not part of the split.
func (s *Split) FindParticipant(address string) *Participant {
	addr := NormalizeAddress(address)
	for i := range s.Participants {
		if s.Participants[i].WalletAddress == addr {
			return &s.Participants[i]
		}
	}
	return nil
}

// ValidateParticipants enforces the participant invariants: 1-50 entries,
// valid unique addresses, and a share sum within tolerance of totalAmount.
func ValidateParticipants(participants []ParticipantInput, totalAmount float64) error {
	if len(participants) == 0 {
		return fmt.Errorf("at least one participant is required")
	}
	if len(participants) > MaxParticipants {
		return fmt.Errorf("too many participants: %d (max %d)", len(participants), MaxParticipants)
	}

	seen := make(map[string]bool, len(participants))
	var sum float64
	for _, p := range participants {
		addr := NormalizeAddress(p.WalletAddress)
		if !IsValidAddress(addr) {
			return fmt.Errorf("invalid participant wallet address: %s", p.WalletAddress)
		}
		if seen[addr] {
			return fmt.Errorf("duplicate participant wallet address: %s", addr)
		}
		seen[addr] = true
		if p.AmountDue < 0 {
			return fmt.Errorf("negative amount due for participant %s", addr)
		}
		sum += p.AmountDue
	}

	if math.Abs(sum-totalAmount) > AmountTolerance {
		return fmt.Errorf("participant amounts (%.2f) do not add up to total amount (%.2f)", sum, totalAmount)
	}
	return nil
}
