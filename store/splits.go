package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"splitpay-backend/models"
)

// Splits persists split documents with their embedded participant lists.
// Participants live in a JSONB column so the split stays a single document
// with atomic per-row writes.
type Splits struct {
	db     *pgxpool.Pool
	strict bool
}

// NewSplits creates the split store. With strict enabled, an insert whose
// participant shares drift from the total by more than the tolerance is
// rejected instead of logged.
func NewSplits(db *pgxpool.Pool, strict bool) *Splits {
	return &Splits{db: db, strict: strict}
}

const splitColumns = `split_id, contract_address, tx_hash, block_number, is_confirmed,
	creator_address, description, total_amount, currency, status, is_completed,
	is_cancelled, participants, category, note, image_url, expires_at, created_at, updated_at`

func scanSplit(row pgx.Row) (*models.Split, error) {
	var sp models.Split
	var participants []byte
	err := row.Scan(
		&sp.SplitID,
		&sp.ContractAddress,
		&sp.TxHash,
		&sp.BlockNumber,
		&sp.IsConfirmed,
		&sp.CreatorAddress,
		&sp.Description,
		&sp.TotalAmount,
		&sp.Currency,
		&sp.Status,
		&sp.IsCompleted,
		&sp.IsCancelled,
		&participants,
		&sp.Category,
		&sp.Note,
		&sp.ImageURL,
		&sp.ExpiresAt,
		&sp.CreatedAt,
		&sp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(participants, &sp.Participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}
	return &sp, nil
}

// Insert persists a new split. The amount-sum invariant is re-checked here:
// a mismatch beyond tolerance is logged and, in strict mode, rejected.
func (s *Splits) Insert(ctx context.Context, sp *models.Split) error {
	if sum := sp.ParticipantSum(); math.Abs(sum-sp.TotalAmount) > models.AmountTolerance {
		logrus.WithFields(logrus.Fields{
			"split_id":     sp.SplitID,
			"total_amount": sp.TotalAmount,
			"share_sum":    sum,
		}).Warn("participant shares do not add up to total amount")
		if s.strict {
			return fmt.Errorf("participant amounts (%.2f) do not add up to total amount (%.2f)", sum, sp.TotalAmount)
		}
	}

	participants, err := json.Marshal(sp.Participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}

	query := `
		INSERT INTO splits (split_id, contract_address, tx_hash, block_number, is_confirmed,
			creator_address, description, total_amount, currency, status, is_completed,
			is_cancelled, participants, category, note, image_url, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`
	err = s.db.QueryRow(ctx, query,
		sp.SplitID,
		sp.ContractAddress,
		sp.TxHash,
		sp.BlockNumber,
		sp.IsConfirmed,
		sp.CreatorAddress,
		sp.Description,
		sp.TotalAmount,
		sp.Currency,
		sp.Status,
		sp.IsCompleted,
		sp.IsCancelled,
		participants,
		sp.Category,
		sp.Note,
		sp.ImageURL,
		sp.ExpiresAt,
	).Scan(&sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert split: %w", err)
	}
	return nil
}

// GetBySplitID returns a split by its numeric id, or (nil, nil) if absent.
func (s *Splits) GetBySplitID(ctx context.Context, splitID int64) (*models.Split, error) {
	query := `SELECT ` + splitColumns + ` FROM splits WHERE split_id = $1`

	sp, err := scanSplit(s.db.QueryRow(ctx, query, splitID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get split %d: %w", splitID, err)
	}
	return sp, nil
}

// GetByTxHash returns a split by its registration transaction hash, or
// (nil, nil) if absent.
func (s *Splits) GetByTxHash(ctx context.Context, txHash string) (*models.Split, error) {
	query := `SELECT ` + splitColumns + ` FROM splits WHERE tx_hash = $1`

	sp, err := scanSplit(s.db.QueryRow(ctx, query, txHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get split by tx hash: %w", err)
	}
	return sp, nil
}

// MaxSplitID returns the highest assigned split id, 0 when the table is empty.
func (s *Splits) MaxSplitID(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.QueryRow(ctx, `SELECT COALESCE(MAX(split_id), 0) FROM splits`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max split id: %w", err)
	}
	return max, nil
}

// ExistsSplitID reports whether a split with the given id already exists.
func (s *Splits) ExistsSplitID(ctx context.Context, splitID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM splits WHERE split_id = $1)`, splitID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check split id: %w", err)
	}
	return exists, nil
}

// ListByCreator returns the creator's splits, newest first.
func (s *Splits) ListByCreator(ctx context.Context, address string, filter models.ListFilter) ([]*models.Split, error) {
	query := `SELECT ` + splitColumns + ` FROM splits WHERE creator_address = $1`
	args := []interface{}{models.NormalizeAddress(address)}
	return s.list(ctx, query, args, filter)
}

// ListByParticipant returns splits whose embedded participant list contains
// the address, newest first. Uses JSONB containment so the GIN index applies.
func (s *Splits) ListByParticipant(ctx context.Context, address string, filter models.ListFilter) ([]*models.Split, error) {
	member, err := json.Marshal([]map[string]string{{"walletAddress": models.NormalizeAddress(address)}})
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + splitColumns + ` FROM splits WHERE participants @> $1`
	args := []interface{}{member}
	return s.list(ctx, query, args, filter)
}

func (s *Splits) list(ctx context.Context, query string, args []interface{}, filter models.ListFilter) ([]*models.Split, error) {
	argIndex := len(args) + 1

	if filter.Status != "" {
		query += " AND status = $" + strconv.Itoa(argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT $" + strconv.Itoa(argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}
	if filter.Skip > 0 {
		query += " OFFSET $" + strconv.Itoa(argIndex)
		args = append(args, filter.Skip)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer rows.Close()

	var splits []*models.Split
	for rows.Next() {
		sp, err := scanSplit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan split row: %w", err)
		}
		splits = append(splits, sp)
	}
	return splits, rows.Err()
}

// UpdateParticipants persists a mutated participant list along with the
// derived status flags, in one atomic row update.
func (s *Splits) UpdateParticipants(ctx context.Context, sp *models.Split) error {
	participants, err := json.Marshal(sp.Participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}

	query := `
		UPDATE splits
		SET participants = $2, status = $3, is_completed = $4, is_cancelled = $5, updated_at = now()
		WHERE split_id = $1
	`
	tag, err := s.db.Exec(ctx, query, sp.SplitID, participants, sp.Status, sp.IsCompleted, sp.IsCancelled)
	if err != nil {
		return fmt.Errorf("failed to update split %d: %w", sp.SplitID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("split not found: %d", sp.SplitID)
	}
	return nil
}
