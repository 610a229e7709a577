package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		wallet_address TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		email TEXT,
		username TEXT,
		avatar_url TEXT,
		total_splits_created BIGINT NOT NULL DEFAULT 0,
		total_splits_joined BIGINT NOT NULL DEFAULT 0,
		total_amount_split DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_active_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS splits (
		split_id BIGINT PRIMARY KEY,
		contract_address TEXT NOT NULL,
		tx_hash TEXT NOT NULL UNIQUE,
		block_number BIGINT NOT NULL DEFAULT 0,
		is_confirmed BOOLEAN NOT NULL DEFAULT false,
		creator_address TEXT NOT NULL,
		description TEXT NOT NULL,
		total_amount DOUBLE PRECISION NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USDC',
		status TEXT NOT NULL DEFAULT 'pending',
		is_completed BOOLEAN NOT NULL DEFAULT false,
		is_cancelled BOOLEAN NOT NULL DEFAULT false,
		participants JSONB NOT NULL DEFAULT '[]',
		category TEXT,
		note TEXT,
		image_url TEXT,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_splits_creator ON splits (creator_address, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_splits_participants ON splits USING GIN (participants jsonb_path_ops)`,
	`CREATE TABLE IF NOT EXISTS transaction_logs (
		id UUID PRIMARY KEY,
		split_id BIGINT NOT NULL,
		tx_hash TEXT NOT NULL,
		from_address TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		block_number BIGINT NOT NULL DEFAULT 0,
		confirmations INT NOT NULL DEFAULT 0,
		is_confirmed BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_txlogs_split ON transaction_logs (split_id)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		wallet_address TEXT NOT NULL,
		split_id BIGINT,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		channels TEXT[] NOT NULL DEFAULT '{}',
		is_sent BOOLEAN NOT NULL DEFAULT false,
		is_read BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_wallet ON notifications (wallet_address, created_at DESC)`,
}

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
