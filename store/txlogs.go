package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"splitpay-backend/models"
)

// TxLogs records on-chain transactions tied to splits. Rows are written on
// creation and payment; nothing in-process consumes them asynchronously.
type TxLogs struct {
	db *pgxpool.Pool
}

func NewTxLogs(db *pgxpool.Pool) *TxLogs {
	return &TxLogs{db: db}
}

// Insert appends a transaction log row.
func (s *TxLogs) Insert(ctx context.Context, log *models.TransactionLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.Status == "" {
		log.Status = models.TxStatusPending
	}

	query := `
		INSERT INTO transaction_logs (id, split_id, tx_hash, from_address, tx_type, status, block_number, confirmations, is_confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRow(ctx, query,
		log.ID,
		log.SplitID,
		log.TxHash,
		models.NormalizeAddress(log.FromAddress),
		log.TxType,
		log.Status,
		log.BlockNumber,
		log.Confirmations,
		log.Confirmations >= models.ConfirmationThreshold,
	).Scan(&log.CreatedAt, &log.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction log: %w", err)
	}
	return nil
}

// UpdateStatus sets the status and confirmation depth for a transaction.
// is_confirmed is derived at the confirmation threshold.
func (s *TxLogs) UpdateStatus(ctx context.Context, txHash, status string, confirmations int) error {
	query := `
		UPDATE transaction_logs
		SET status = $2, confirmations = $3, is_confirmed = $4, updated_at = now()
		WHERE tx_hash = $1
	`
	_, err := s.db.Exec(ctx, query, txHash, status, confirmations,
		confirmations >= models.ConfirmationThreshold)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return nil
}

// GetByTxHash returns the log row for a transaction hash, or (nil, nil).
func (s *TxLogs) GetByTxHash(ctx context.Context, txHash string) (*models.TransactionLog, error) {
	query := `
		SELECT id, split_id, tx_hash, from_address, tx_type, status, block_number, confirmations, is_confirmed, created_at, updated_at
		FROM transaction_logs
		WHERE tx_hash = $1
	`
	var log models.TransactionLog
	err := s.db.QueryRow(ctx, query, txHash).Scan(
		&log.ID,
		&log.SplitID,
		&log.TxHash,
		&log.FromAddress,
		&log.TxType,
		&log.Status,
		&log.BlockNumber,
		&log.Confirmations,
		&log.IsConfirmed,
		&log.CreatedAt,
		&log.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction log: %w", err)
	}
	return &log, nil
}
