package services

import (
	"context"

	"splitpay-backend/models"
)

// Store interfaces consumed by the services. The pgx-backed implementations
// live in the store package; tests substitute in-memory fakes.

type UserStore interface {
	FindByWallet(ctx context.Context, address string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	IncrementSplitCreated(ctx context.Context, address string) error
	IncrementSplitJoined(ctx context.Context, address string, amount float64) error
	UpdateActivity(ctx context.Context, address string) error
}

type SplitStore interface {
	Insert(ctx context.Context, sp *models.Split) error
	GetBySplitID(ctx context.Context, splitID int64) (*models.Split, error)
	GetByTxHash(ctx context.Context, txHash string) (*models.Split, error)
	MaxSplitID(ctx context.Context) (int64, error)
	ExistsSplitID(ctx context.Context, splitID int64) (bool, error)
	ListByCreator(ctx context.Context, address string, filter models.ListFilter) ([]*models.Split, error)
	ListByParticipant(ctx context.Context, address string, filter models.ListFilter) ([]*models.Split, error)
	UpdateParticipants(ctx context.Context, sp *models.Split) error
}

type TxLogStore interface {
	Insert(ctx context.Context, log *models.TransactionLog) error
}

type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
}
