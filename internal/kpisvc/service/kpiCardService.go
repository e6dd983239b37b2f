package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/kpi-services/internal/comm"
	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	"github.com/avvvet/kpi-services/internal/kpisvc/store"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNotFound         = store.ErrNotFound
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidField     = errors.New("invalid field")
	ErrInsufficientData = models.ErrInsufficientData
)

// CardRepository is the persistence contract for KPI cards.
type CardRepository interface {
	ListVisible(ctx context.Context) ([]*models.KpiCard, error)
	ListHidden(ctx context.Context) ([]*models.KpiCard, error)
	ListAll(ctx context.Context) ([]*models.KpiCard, error)
	GetByID(ctx context.Context, id string) (*models.KpiCard, error)
	FindDefaultByName(ctx context.Context, name string) (*models.KpiCard, error)
	Create(ctx context.Context, card *models.KpiCard) error
	SaveFields(ctx context.Context, card *models.KpiCard, columns []string) error
	SetVisible(ctx context.Context, id string, visible bool) (*models.KpiCard, error)
	Reorder(ctx context.Context, entries []models.OrderEntry) error
}

// EventPublisher receives card events after successful mutations.
type EventPublisher interface {
	PublishCardEvent(ev comm.CardEvent) error
}

// KpiCardService struct represents the kpi card service layer
type KpiCardService struct {
	store     CardRepository
	sync      *Synchronizer
	publisher EventPublisher
	now       func() time.Time
}

// NewKpiCardService creates a new KpiCardService instance. publisher may be nil.
func NewKpiCardService(store CardRepository, publisher EventPublisher) *KpiCardService {
	return &KpiCardService{
		store:     store,
		sync:      NewSynchronizer(store),
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *KpiCardService) ListVisible(ctx context.Context) ([]*models.KpiCard, error) {
	cards, err := s.store.ListVisible(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		c.WithYield()
	}
	return cards, nil
}

// ListAvailable returns hidden cards that are neither in excludeIDs nor
// currently visible, for the "add card" picker.
func (s *KpiCardService) ListAvailable(ctx context.Context, excludeIDs []string) ([]*models.KpiCard, error) {
	hidden, err := s.store.ListHidden(ctx)
	if err != nil {
		return nil, err
	}
	visible, err := s.store.ListVisible(ctx)
	if err != nil {
		return nil, err
	}

	displayed := make(map[string]struct{}, len(excludeIDs)+len(visible))
	for _, id := range excludeIDs {
		if id != "" {
			displayed[id] = struct{}{}
		}
	}
	for _, c := range visible {
		displayed[c.ID] = struct{}{}
	}

	available := []*models.KpiCard{}
	for _, c := range hidden {
		if _, ok := displayed[c.ID]; ok {
			continue
		}
		available = append(available, c.WithYield())
	}
	return available, nil
}

func (s *KpiCardService) Get(ctx context.Context, id string) (*models.KpiCard, error) {
	card, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return card.WithYield(), nil
}

// Create inserts a new card. A default card whose name already exists as
// a default is reactivated instead, in which case created is false.
func (s *KpiCardService) Create(ctx context.Context, in models.NewCard) (card *models.KpiCard, created bool, err error) {
	if in.Name == "" {
		return nil, false, fmt.Errorf("%w: name", ErrMissingField)
	}

	if in.IsDefault != nil && *in.IsDefault {
		existing, err := s.store.FindDefaultByName(ctx, in.Name)
		switch {
		case err == nil:
			reactivated, err := s.store.SetVisible(ctx, existing.ID, true)
			if err != nil {
				return nil, false, err
			}
			log.Infof("reactivated default card %s (%s)", reactivated.Name, reactivated.ID)
			s.publish(comm.CardUpdated, reactivated)
			return reactivated.WithYield(), false, nil
		case !errors.Is(err, ErrNotFound):
			return nil, false, err
		}
	}

	card, err = in.ToCard(s.now())
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	if err := s.store.Create(ctx, card); err != nil {
		return nil, false, err
	}
	log.Infof("created kpi card %s (%s)", card.Name, card.ID)

	if card.IsCoils() {
		counterpart, err := s.sync.AfterCreate(ctx, card)
		if err != nil {
			log.Errorf("linked card sync after create of %s failed: %s", card.ID, err)
		} else if counterpart != nil {
			s.publish(comm.CardUpdated, counterpart)
		}
	}

	s.publish(comm.CardCreated, card)
	return card.WithYield(), true, nil
}

// Update applies only the fields present in patch and then propagates
// linked values to the coils/tons counterpart.
func (s *KpiCardService) Update(ctx context.Context, id string, patch models.CardPatch) (*models.KpiCard, error) {
	card, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(card); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	if err := s.store.SaveFields(ctx, card, patch.Columns()); err != nil {
		return nil, err
	}

	if card.IsCoils() || card.IsTons() {
		counterpart, err := s.sync.AfterUpdate(ctx, card, patch)
		if err != nil {
			log.Errorf("linked card sync after update of %s failed: %s", card.ID, err)
		} else if counterpart != nil {
			s.publish(comm.CardUpdated, counterpart)
		}
	}

	s.publish(comm.CardUpdated, card)
	return card.WithYield(), nil
}

// SetVisibility changes only isVisible. A nil value keeps the current one.
func (s *KpiCardService) SetVisibility(ctx context.Context, id string, visible *bool) (*models.KpiCard, error) {
	if visible == nil {
		return s.Get(ctx, id)
	}
	card, err := s.store.SetVisible(ctx, id, *visible)
	if err != nil {
		return nil, err
	}
	if card.IsVisible {
		s.publish(comm.CardUpdated, card)
	} else {
		s.publish(comm.CardHidden, card)
	}
	return card.WithYield(), nil
}

// Hide is the only delete path; the row is kept for later re-adding.
func (s *KpiCardService) Hide(ctx context.Context, id string) error {
	card, err := s.store.SetVisible(ctx, id, false)
	if err != nil {
		return err
	}
	s.publish(comm.CardHidden, card)
	return nil
}

func (s *KpiCardService) Yield(ctx context.Context, id string) (*models.CardYield, error) {
	card, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	y, err := models.Yield(card.Achieved, card.Benchmark)
	if err != nil {
		return nil, err
	}
	return &models.CardYield{
		CardID:       card.ID,
		CardName:     card.Name,
		Achieved:     *card.Achieved,
		Benchmark:    card.Benchmark,
		YieldPercent: y,
	}, nil
}

// Reorder persists a whole drag-reorder in one all-or-nothing write.
func (s *KpiCardService) Reorder(ctx context.Context, entries []models.OrderEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: cards", ErrMissingField)
	}
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%w: id", ErrMissingField)
		}
	}
	if err := s.store.Reorder(ctx, entries); err != nil {
		return err
	}

	if s.publisher != nil {
		s.emit(comm.CardEvent{Type: comm.CardsReordered, Order: entries, At: s.now()})
	}
	return nil
}

func (s *KpiCardService) publish(t comm.CardEventType, card *models.KpiCard) {
	if s.publisher == nil {
		return
	}
	s.emit(comm.CardEvent{Type: t, Card: card, At: s.now()})
}

func (s *KpiCardService) emit(ev comm.CardEvent) {
	if err := s.publisher.PublishCardEvent(ev); err != nil {
		log.Warnf("unable to publish %s event: %s", ev.Type, err)
	}
}
