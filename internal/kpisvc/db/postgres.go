package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect initializes the connection pool
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	// Try pinging to make sure it's valid
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS kpi_cards (
		id          VARCHAR(36) PRIMARY KEY,
		name        TEXT NOT NULL,
		min_value   DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_value   DOUBLE PRECISION NOT NULL DEFAULT 100,
		benchmark   DOUBLE PRECISION NOT NULL DEFAULT 0,
		achieved    DOUBLE PRECISION,
		date        TIMESTAMPTZ NOT NULL DEFAULT now(),
		sort_order  INTEGER NOT NULL DEFAULT 0,
		is_default  BOOLEAN NOT NULL DEFAULT false,
		is_visible  BOOLEAN NOT NULL DEFAULT true,
		pair_id     VARCHAR(36),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_kpi_cards_visible_order ON kpi_cards (is_visible, sort_order)`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id     VARCHAR(128) PRIMARY KEY,
		layout      TEXT NOT NULL DEFAULT '',
		card_order  TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Reset drops and recreates the tables.
func Reset(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range []string{"kpi_cards", "user_preferences"} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return Migrate(ctx, pool)
}
