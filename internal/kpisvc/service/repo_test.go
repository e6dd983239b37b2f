package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/kpi-services/internal/comm"
	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	"github.com/google/uuid"
)

// memRepo is an in-memory CardRepository. It hands out copies so callers
// see store semantics rather than shared pointers.
type memRepo struct {
	mu    sync.Mutex
	cards []*models.KpiCard
	clock time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{clock: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func clone(c *models.KpiCard) *models.KpiCard {
	cp := *c
	if c.Achieved != nil {
		v := *c.Achieved
		cp.Achieved = &v
	}
	if c.PairID != nil {
		v := *c.PairID
		cp.PairID = &v
	}
	cp.YieldPercent = nil
	return &cp
}

func (r *memRepo) sorted(keep func(*models.KpiCard) bool) []*models.KpiCard {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.KpiCard{}
	for _, c := range r.cards {
		if keep(c) {
			out = append(out, clone(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *memRepo) find(id string) *models.KpiCard {
	for _, c := range r.cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (r *memRepo) ListVisible(ctx context.Context) ([]*models.KpiCard, error) {
	return r.sorted(func(c *models.KpiCard) bool { return c.IsVisible }), nil
}

func (r *memRepo) ListHidden(ctx context.Context) ([]*models.KpiCard, error) {
	return r.sorted(func(c *models.KpiCard) bool { return !c.IsVisible }), nil
}

func (r *memRepo) ListAll(ctx context.Context) ([]*models.KpiCard, error) {
	return r.sorted(func(*models.KpiCard) bool { return true }), nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*models.KpiCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.find(id)
	if c == nil {
		return nil, ErrNotFound
	}
	return clone(c), nil
}

func (r *memRepo) FindDefaultByName(ctx context.Context, name string) (*models.KpiCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cards {
		if c.IsDefault && c.Name == name {
			return clone(c), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) Create(ctx context.Context, card *models.KpiCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	r.clock = r.clock.Add(time.Second)
	card.CreatedAt = r.clock
	card.UpdatedAt = r.clock
	r.cards = append(r.cards, clone(card))
	return nil
}

func (r *memRepo) SaveFields(ctx context.Context, card *models.KpiCard, columns []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.find(card.ID)
	if c == nil {
		return ErrNotFound
	}
	src := clone(card)
	for _, col := range columns {
		switch col {
		case models.ColName:
			c.Name = src.Name
		case models.ColMinValue:
			c.MinValue = src.MinValue
		case models.ColMaxValue:
			c.MaxValue = src.MaxValue
		case models.ColBenchmark:
			c.Benchmark = src.Benchmark
		case models.ColAchieved:
			c.Achieved = src.Achieved
		case models.ColDate:
			c.Date = src.Date
		case models.ColOrder:
			c.Order = src.Order
		case models.ColIsDefault:
			c.IsDefault = src.IsDefault
		case models.ColIsVisible:
			c.IsVisible = src.IsVisible
		case models.ColPairID:
			c.PairID = src.PairID
		default:
			return fmt.Errorf("unknown column %q", col)
		}
	}
	r.clock = r.clock.Add(time.Second)
	c.UpdatedAt = r.clock
	card.UpdatedAt = r.clock
	return nil
}

func (r *memRepo) SetVisible(ctx context.Context, id string, visible bool) (*models.KpiCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.find(id)
	if c == nil {
		return nil, ErrNotFound
	}
	c.IsVisible = visible
	return clone(c), nil
}

func (r *memRepo) Reorder(ctx context.Context, entries []models.OrderEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		if r.find(e.ID) == nil {
			return ErrNotFound
		}
	}
	for _, e := range entries {
		r.find(e.ID).Order = e.Order
	}
	return nil
}

func (r *memRepo) byName(name string) []*models.KpiCard {
	return r.sorted(func(c *models.KpiCard) bool { return strings.EqualFold(c.Name, name) })
}

type recorder struct {
	mu     sync.Mutex
	events []comm.CardEvent
}

func (p *recorder) PublishCardEvent(ev comm.CardEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recorder) types() []comm.CardEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]comm.CardEventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type memPrefs struct {
	mu    sync.Mutex
	prefs map[string]models.UserPreference
}

func (m *memPrefs) Get(ctx context.Context, userID string) (*models.UserPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memPrefs) Upsert(ctx context.Context, pref *models.UserPreference) (*models.UserPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		m.prefs = map[string]models.UserPreference{}
	}
	m.prefs[pref.UserID] = *pref
	out := *pref
	return &out, nil
}

func f64(v float64) *float64 { return &v }
func boolp(v bool) *bool      { return &v }
func intp(v int) *int         { return &v }
