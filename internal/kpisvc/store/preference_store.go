package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PreferenceStore struct {
	db *pgxpool.Pool
}

func NewPreferenceStore(db *pgxpool.Pool) *PreferenceStore {
	return &PreferenceStore{db: db}
}

func (s *PreferenceStore) Get(ctx context.Context, userID string) (*models.UserPreference, error) {
	p := &models.UserPreference{}
	err := s.db.QueryRow(ctx, `
		SELECT user_id, layout, card_order, created_at, updated_at
		FROM user_preferences
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Layout, &p.CardOrder, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get preferences for %s: %w", userID, err)
	}
	return p, nil
}

func (s *PreferenceStore) Upsert(ctx context.Context, pref *models.UserPreference) (*models.UserPreference, error) {
	query := `
		INSERT INTO user_preferences (user_id, layout, card_order)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET layout = EXCLUDED.layout, card_order = EXCLUDED.card_order, updated_at = now()
		RETURNING user_id, layout, card_order, created_at, updated_at
	`
	p := &models.UserPreference{}
	err := s.db.QueryRow(ctx, query, pref.UserID, pref.Layout, pref.CardOrder).
		Scan(&p.UserID, &p.Layout, &p.CardOrder, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("could not upsert preferences for %s: %w", pref.UserID, err)
	}
	return p, nil
}
