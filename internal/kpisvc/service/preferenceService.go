package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/kpi-services/internal/kpisvc/models"
)

type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*models.UserPreference, error)
	Upsert(ctx context.Context, pref *models.UserPreference) (*models.UserPreference, error)
}

type PreferenceService struct {
	store PreferenceRepository
}

func NewPreferenceService(store PreferenceRepository) *PreferenceService {
	return &PreferenceService{store: store}
}

// GetPreference returns nil without error when the user has none saved.
func (s *PreferenceService) GetPreference(ctx context.Context, userID string) (*models.UserPreference, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId", ErrMissingField)
	}
	pref, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return pref, nil
}

// SavePreference creates the user's preferences or overwrites layout and card order.
func (s *PreferenceService) SavePreference(ctx context.Context, pref models.UserPreference) (*models.UserPreference, error) {
	if pref.UserID == "" {
		return nil, fmt.Errorf("%w: userId", ErrMissingField)
	}
	return s.store.Upsert(ctx, &pref)
}
