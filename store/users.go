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

// Users persists wallet-keyed user records.
type Users struct {
	db *pgxpool.Pool
}

func NewUsers(db *pgxpool.Pool) *Users {
	return &Users{db: db}
}

const userColumns = `id, wallet_address, display_name, email, username, avatar_url,
	total_splits_created, total_splits_joined, total_amount_split, last_active_at, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.WalletAddress,
		&u.DisplayName,
		&u.Email,
		&u.Username,
		&u.AvatarURL,
		&u.TotalSplitsCreated,
		&u.TotalSplitsJoined,
		&u.TotalAmountSplit,
		&u.LastActiveAt,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByWallet looks up a user by wallet address. The address is lowercased
// before lookup. Returns (nil, nil) when no user exists.
func (s *Users) FindByWallet(ctx context.Context, address string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE wallet_address = $1`

	u, err := scanUser(s.db.QueryRow(ctx, query, models.NormalizeAddress(address)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

// Create inserts a new user. Fails on a duplicate wallet address or a
// malformed address.
func (s *Users) Create(ctx context.Context, user *models.User) error {
	user.WalletAddress = models.NormalizeAddress(user.WalletAddress)
	if err := models.ValidateAddress(user.WalletAddress); err != nil {
		return err
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	query := `
		INSERT INTO users (id, wallet_address, display_name, email, username, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING last_active_at, created_at
	`
	err := s.db.QueryRow(ctx, query,
		user.ID,
		user.WalletAddress,
		user.DisplayName,
		user.Email,
		user.Username,
		user.AvatarURL,
	).Scan(&user.LastActiveAt, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// IncrementSplitCreated bumps the creation counter and last_active_at in a
// single atomic update.
func (s *Users) IncrementSplitCreated(ctx context.Context, address string) error {
	query := `
		UPDATE users
		SET total_splits_created = total_splits_created + 1, last_active_at = now()
		WHERE wallet_address = $1
	`
	tag, err := s.db.Exec(ctx, query, models.NormalizeAddress(address))
	if err != nil {
		return fmt.Errorf("failed to increment splits created: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", address)
	}
	return nil
}

// IncrementSplitJoined bumps the join counter, adds amount to the running
// total and touches last_active_at, atomically.
func (s *Users) IncrementSplitJoined(ctx context.Context, address string, amount float64) error {
	query := `
		UPDATE users
		SET total_splits_joined = total_splits_joined + 1,
		    total_amount_split = total_amount_split + $2,
		    last_active_at = now()
		WHERE wallet_address = $1
	`
	tag, err := s.db.Exec(ctx, query, models.NormalizeAddress(address), amount)
	if err != nil {
		return fmt.Errorf("failed to increment splits joined: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", address)
	}
	return nil
}

// UpdateActivity touches last_active_at.
func (s *Users) UpdateActivity(ctx context.Context, address string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET last_active_at = now() WHERE wallet_address = $1`,
		models.NormalizeAddress(address))
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	return nil
}
