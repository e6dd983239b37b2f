package models

import (
	"strings"
	"time"
)

const (
	CoilsPattern = "coils/hr"
	TonsPattern  = "tons/hr"
)

// Mutable kpi_cards columns, for writes that touch only some fields.
const (
	ColName      = "name"
	ColMinValue  = "min_value"
	ColMaxValue  = "max_value"
	ColBenchmark = "benchmark"
	ColAchieved  = "achieved"
	ColDate      = "date"
	ColOrder     = "sort_order"
	ColIsDefault = "is_default"
	ColIsVisible = "is_visible"
	ColPairID    = "pair_id"
)

// LinkedColumns are the values kept proportional between a coils/hr card
// and its tons/hr counterpart.
var LinkedColumns = []string{ColMinValue, ColMaxValue, ColBenchmark, ColAchieved}

// KpiCard represents the kpi_cards table in the database.
type KpiCard struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"not null"`
	MinValue  float64   `json:"minValue" gorm:"not null"`
	MaxValue  float64   `json:"maxValue" gorm:"not null"`
	Benchmark float64   `json:"benchmark" gorm:"not null"`
	Achieved  *float64  `json:"achieved"`
	Date      time.Time `json:"date"`
	Order     int       `json:"order" gorm:"column:sort_order;not null;index"`
	IsDefault bool      `json:"isDefault" gorm:"not null"`
	IsVisible bool      `json:"isVisible" gorm:"not null;index"`
	PairID    *string   `json:"pairId,omitempty" gorm:"type:varchar(36)"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// derived on read, never stored
	YieldPercent *float64 `json:"yieldPercent,omitempty" gorm:"-"`
}

func (KpiCard) TableName() string {
	return "kpi_cards"
}

// IsCoils reports whether the card is the coils/hr side of a linked pair.
func (c *KpiCard) IsCoils() bool {
	return strings.Contains(strings.ToLower(c.Name), CoilsPattern)
}

// IsTons reports whether the card is the tons/hr side of a linked pair.
func (c *KpiCard) IsTons() bool {
	return strings.Contains(strings.ToLower(c.Name), TonsPattern)
}

// WithYield fills YieldPercent from the current achieved and benchmark.
func (c *KpiCard) WithYield() *KpiCard {
	c.YieldPercent = nil
	if y, err := Yield(c.Achieved, c.Benchmark); err == nil {
		c.YieldPercent = &y
	}
	return c
}

// NewCard carries the fields accepted when creating a card.
// Unset pointers fall back to the defaults applied by ToCard.
type NewCard struct {
	Name      string   `json:"name"`
	MinValue  *float64 `json:"minValue"`
	MaxValue  *float64 `json:"maxValue"`
	Benchmark *float64 `json:"benchmark"`
	Achieved  *float64 `json:"achieved"`
	Date      *string  `json:"date"`
	Order     *int     `json:"order"`
	IsDefault *bool    `json:"isDefault"`
}

// ToCard builds a visible card with defaults 0/100/0/null for the numeric fields.
func (n NewCard) ToCard(now time.Time) (*KpiCard, error) {
	card := &KpiCard{
		Name:      n.Name,
		MinValue:  valueOr(n.MinValue, 0),
		MaxValue:  valueOr(n.MaxValue, 100),
		Benchmark: valueOr(n.Benchmark, 0),
		Achieved:  n.Achieved,
		Date:      now,
		IsVisible: true,
	}
	if n.Date != nil && *n.Date != "" {
		d, err := ParseCardDate(*n.Date)
		if err != nil {
			return nil, err
		}
		card.Date = d
	}
	if n.Order != nil {
		card.Order = *n.Order
	}
	if n.IsDefault != nil {
		card.IsDefault = *n.IsDefault
	}
	return card, nil
}

// OrderEntry assigns a display position to a single card.
type OrderEntry struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
