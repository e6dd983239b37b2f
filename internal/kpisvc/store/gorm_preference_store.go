package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormPreferenceStore struct {
	db *gorm.DB
}

func NewGormPreferenceStore(db *gorm.DB) *GormPreferenceStore {
	return &GormPreferenceStore{db: db}
}

func (s *GormPreferenceStore) Get(ctx context.Context, userID string) (*models.UserPreference, error) {
	var p models.UserPreference
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get preferences for %s: %w", userID, err)
	}
	return &p, nil
}

func (s *GormPreferenceStore) Upsert(ctx context.Context, pref *models.UserPreference) (*models.UserPreference, error) {
	p := &models.UserPreference{
		UserID:    pref.UserID,
		Layout:    pref.Layout,
		CardOrder: pref.CardOrder,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"layout", "card_order", "updated_at"}),
	}).Create(p).Error
	if err != nil {
		return nil, fmt.Errorf("upsert preferences for %s: %w", pref.UserID, err)
	}
	return s.Get(ctx, pref.UserID)
}
