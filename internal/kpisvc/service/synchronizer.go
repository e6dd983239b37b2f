package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// 1 coil = 10 tons
var pairMultiplier = decimal.NewFromInt(10)

var (
	coilsWord = regexp.MustCompile(`(?i)coils`)
	tonsWord  = regexp.MustCompile(`(?i)tons`)
)

// Synchronizer keeps a coils/hr card and its tons/hr counterpart
// proportional. It is best effort: the counterpart write is separate from
// the triggering write and a missing counterpart is not an error.
type Synchronizer struct {
	store CardRepository
}

func NewSynchronizer(store CardRepository) *Synchronizer {
	return &Synchronizer{store: store}
}

// CoilsToTons scales a coils/hr value to tons/hr.
func CoilsToTons(v float64) float64 {
	return decimal.NewFromFloat(v).Mul(pairMultiplier).InexactFloat64()
}

// TonsToCoils scales a tons/hr value to coils/hr, rounded to 2 places.
func TonsToCoils(v float64) float64 {
	return decimal.NewFromFloat(v).Div(pairMultiplier).Round(2).InexactFloat64()
}

// CounterpartName swaps the first Coils/Tons word of name for the other one.
func CounterpartName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, models.CoilsPattern):
		return replaceFirst(coilsWord, name, "Tons")
	case strings.Contains(lower, models.TonsPattern):
		return replaceFirst(tonsWord, name, "Coils")
	}
	return name
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}

type scaleFunc func(float64) float64

func direction(card *models.KpiCard) (scaleFunc, string) {
	if card.IsCoils() {
		return CoilsToTons, models.TonsPattern
	}
	return TonsToCoils, models.CoilsPattern
}

type lookupMode int

const (
	// exact: pair id or exact counterpart name only
	lookupExact lookupMode = iota
	// loose: exact, then the first card carrying the target pattern
	lookupLoose
)

// findCounterpart looks the partner up by explicit pair id, then by exact
// counterpart name and, in loose mode, by the first card whose name
// carries the target pattern.
func (s *Synchronizer) findCounterpart(ctx context.Context, trigger *models.KpiCard, pattern string, mode lookupMode) (*models.KpiCard, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	matches := func(c *models.KpiCard) bool {
		return c.ID != trigger.ID && strings.Contains(strings.ToLower(c.Name), pattern)
	}

	if trigger.PairID != nil {
		for _, c := range all {
			if c.ID == *trigger.PairID && matches(c) {
				return c, nil
			}
		}
	}

	name := CounterpartName(trigger.Name)
	for _, c := range all {
		if matches(c) && strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}

	if mode == lookupExact {
		return nil, nil
	}
	for _, c := range all {
		if matches(c) {
			return c, nil
		}
	}
	return nil, nil
}

// AfterCreate runs after a coils/hr card is inserted. It updates the
// tons/hr card of the same name, or creates it right after the trigger.
// Other tons/hr cards belong to other lines and are never touched.
func (s *Synchronizer) AfterCreate(ctx context.Context, trigger *models.KpiCard) (*models.KpiCard, error) {
	if !trigger.IsCoils() {
		return nil, nil
	}
	scale, pattern := direction(trigger)

	counterpart, err := s.findCounterpart(ctx, trigger, pattern, lookupExact)
	if err != nil {
		return nil, fmt.Errorf("find counterpart: %w", err)
	}

	triggerID := trigger.ID
	if counterpart == nil {
		counterpart = &models.KpiCard{
			Name:      CounterpartName(trigger.Name),
			Date:      trigger.Date,
			Order:     trigger.Order + 1,
			IsDefault: trigger.IsDefault,
			IsVisible: true,
			PairID:    &triggerID,
		}
		scaleValues(counterpart, trigger, scale)
		if err := s.store.Create(ctx, counterpart); err != nil {
			return nil, fmt.Errorf("create counterpart: %w", err)
		}
		log.Infof("created %s based on %s", counterpart.Name, trigger.Name)
		return counterpart, s.link(ctx, trigger, counterpart)
	}

	scaleValues(counterpart, trigger, scale)
	counterpart.IsVisible = true
	counterpart.PairID = &triggerID
	columns := append([]string{models.ColIsVisible, models.ColPairID}, models.LinkedColumns...)
	if err := s.store.SaveFields(ctx, counterpart, columns); err != nil {
		return nil, fmt.Errorf("update counterpart: %w", err)
	}
	log.Infof("updated %s based on %s", counterpart.Name, trigger.Name)

	return counterpart, s.link(ctx, trigger, counterpart)
}

// AfterUpdate propagates the linked fields present in patch to the
// counterpart. Fields absent from patch are left untouched; a missing
// counterpart is a no-op.
func (s *Synchronizer) AfterUpdate(ctx context.Context, trigger *models.KpiCard, patch models.CardPatch) (*models.KpiCard, error) {
	if !patch.HasValues() || !(trigger.IsCoils() || trigger.IsTons()) {
		return nil, nil
	}
	scale, pattern := direction(trigger)

	counterpart, err := s.findCounterpart(ctx, trigger, pattern, lookupLoose)
	if err != nil {
		return nil, fmt.Errorf("find counterpart: %w", err)
	}
	if counterpart == nil {
		log.Debugf("no counterpart found for %s", trigger.Name)
		return nil, nil
	}

	if patch.Benchmark != nil {
		counterpart.Benchmark = scale(*patch.Benchmark)
	}
	if patch.MinValue != nil {
		counterpart.MinValue = scale(*patch.MinValue)
	}
	if patch.MaxValue != nil {
		counterpart.MaxValue = scale(*patch.MaxValue)
	}
	if patch.Achieved.Set {
		counterpart.Achieved = scalePtr(patch.Achieved.Ptr(), scale)
	}

	if err := s.store.SaveFields(ctx, counterpart, patch.LinkedColumns()); err != nil {
		return nil, fmt.Errorf("update counterpart: %w", err)
	}
	log.Infof("updated %s based on %s changes", counterpart.Name, trigger.Name)
	return counterpart, nil
}

func (s *Synchronizer) link(ctx context.Context, trigger, counterpart *models.KpiCard) error {
	if trigger.PairID != nil && *trigger.PairID == counterpart.ID {
		return nil
	}
	pairID := counterpart.ID
	trigger.PairID = &pairID
	if err := s.store.SaveFields(ctx, trigger, []string{models.ColPairID}); err != nil {
		return fmt.Errorf("link %s to %s: %w", trigger.ID, counterpart.ID, err)
	}
	return nil
}

func scaleValues(dst, src *models.KpiCard, scale scaleFunc) {
	dst.MinValue = scale(src.MinValue)
	dst.MaxValue = scale(src.MaxValue)
	dst.Benchmark = scale(src.Benchmark)
	dst.Achieved = scalePtr(src.Achieved, scale)
}

func scalePtr(v *float64, scale scaleFunc) *float64 {
	if v == nil {
		return nil
	}
	scaled := scale(*v)
	return &scaled
}
