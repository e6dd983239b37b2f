package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCardStore is the card repository used in embedded (SQLite) mode.
type GormCardStore struct {
	db *gorm.DB
}

func NewGormCardStore(db *gorm.DB) *GormCardStore {
	return &GormCardStore{db: db}
}

func (s *GormCardStore) list(ctx context.Context, where ...any) ([]*models.KpiCard, error) {
	cards := []*models.KpiCard{}
	q := s.db.WithContext(ctx).Order("sort_order ASC, created_at ASC")
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	if err := q.Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *GormCardStore) ListVisible(ctx context.Context) ([]*models.KpiCard, error) {
	cards, err := s.list(ctx, "is_visible = ?", true)
	if err != nil {
		return nil, fmt.Errorf("list visible cards: %w", err)
	}
	return cards, nil
}

func (s *GormCardStore) ListHidden(ctx context.Context) ([]*models.KpiCard, error) {
	cards, err := s.list(ctx, "is_visible = ?", false)
	if err != nil {
		return nil, fmt.Errorf("list hidden cards: %w", err)
	}
	return cards, nil
}

func (s *GormCardStore) ListAll(ctx context.Context) ([]*models.KpiCard, error) {
	cards, err := s.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

func (s *GormCardStore) GetByID(ctx context.Context, id string) (*models.KpiCard, error) {
	var card models.KpiCard
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get card %s: %w", id, err)
	}
	return &card, nil
}

func (s *GormCardStore) FindDefaultByName(ctx context.Context, name string) (*models.KpiCard, error) {
	var card models.KpiCard
	err := s.db.WithContext(ctx).
		Where("name = ? AND is_default = ?", name, true).
		Order("created_at ASC").
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find default card %q: %w", name, err)
	}
	return &card, nil
}

func (s *GormCardStore) Create(ctx context.Context, card *models.KpiCard) error {
	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(card).Error; err != nil {
		return fmt.Errorf("create card: %w", err)
	}
	return nil
}

func (s *GormCardStore) Save(ctx context.Context, card *models.KpiCard) error {
	res := s.db.WithContext(ctx).Model(card).Select("*").Omit("id", "created_at").Updates(card)
	if res.Error != nil {
		return fmt.Errorf("update card %s: %w", card.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveFields writes only the named columns of card.
func (s *GormCardStore) SaveFields(ctx context.Context, card *models.KpiCard, columns []string) error {
	for _, col := range columns {
		if _, ok := cardColumnValues[col]; !ok {
			return fmt.Errorf("update card %s: unknown column %q", card.ID, col)
		}
	}
	q := s.db.WithContext(ctx).Model(card)
	if len(columns) == 0 {
		q = q.Select("updated_at")
	} else {
		q = q.Select(columns)
	}
	res := q.Updates(card)
	if res.Error != nil {
		return fmt.Errorf("update card %s: %w", card.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormCardStore) SetVisible(ctx context.Context, id string, visible bool) (*models.KpiCard, error) {
	res := s.db.WithContext(ctx).Model(&models.KpiCard{}).Where("id = ?", id).Update("is_visible", visible)
	if res.Error != nil {
		return nil, fmt.Errorf("set visibility of card %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *GormCardStore) Reorder(ctx context.Context, entries []models.OrderEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			res := tx.Model(&models.KpiCard{}).Where("id = ?", e.ID).Update("sort_order", e.Order)
			if res.Error != nil {
				return fmt.Errorf("reorder card %s: %w", e.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("reorder card %s: %w", e.ID, ErrNotFound)
			}
		}
		return nil
	})
}

func (s *GormCardStore) DeleteAll(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.KpiCard{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete cards: %w", res.Error)
	}
	return res.RowsAffected, nil
}
