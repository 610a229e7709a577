package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"splitpay-backend/models"
)

// Notifications persists per-wallet notification records.
type Notifications struct {
	db *pgxpool.Pool
}

func NewNotifications(db *pgxpool.Pool) *Notifications {
	return &Notifications{db: db}
}

// Insert appends a notification addressed to a wallet.
func (s *Notifications) Insert(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Channels == nil {
		n.Channels = []string{"in_app"}
	}

	query := `
		INSERT INTO notifications (id, wallet_address, split_id, type, title, message, channels, is_sent, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err := s.db.QueryRow(ctx, query,
		n.ID,
		models.NormalizeAddress(n.WalletAddress),
		n.SplitID,
		n.Type,
		n.Title,
		n.Message,
		n.Channels,
		n.IsSent,
		n.IsRead,
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListByWallet returns a wallet's notifications, newest first.
func (s *Notifications) ListByWallet(ctx context.Context, address string, limit, skip int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, wallet_address, split_id, type, title, message, channels, is_sent, is_read, created_at
		FROM notifications
		WHERE wallet_address = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.Query(ctx, query, models.NormalizeAddress(address), limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.ID,
			&n.WalletAddress,
			&n.SplitID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.Channels,
			&n.IsSent,
			&n.IsRead,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkRead flags a notification as read. Scoped to the owning wallet so a
// caller cannot touch another wallet's records.
func (s *Notifications) MarkRead(ctx context.Context, id uuid.UUID, address string) error {
	query := `UPDATE notifications SET is_read = true WHERE id = $1 AND wallet_address = $2`
	tag, err := s.db.Exec(ctx, query, id, models.NormalizeAddress(address))
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification not found: %s", id)
	}
	return nil
}
