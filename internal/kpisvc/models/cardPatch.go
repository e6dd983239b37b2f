package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// NullFloat tells apart a field missing from a JSON body (Set=false),
// an explicit null (Set=true, Valid=false) and a number.
type NullFloat struct {
	Set   bool
	Valid bool
	Float float64
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Valid = false
		n.Float = 0
		return nil
	}
	if err := json.Unmarshal(b, &n.Float); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float)
}

// Ptr returns nil for null, otherwise a pointer to the value.
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float
	return &v
}

// CardPatch is a partial update; only present fields are applied.
type CardPatch struct {
	Name      *string   `json:"name"`
	MinValue  *float64  `json:"minValue"`
	MaxValue  *float64  `json:"maxValue"`
	Benchmark *float64  `json:"benchmark"`
	Achieved  NullFloat `json:"achieved"`
	Date      *string   `json:"date"`
	Order     *int      `json:"order"`
	IsDefault *bool     `json:"isDefault"`
	IsVisible *bool     `json:"isVisible"`
}

// Apply copies the present fields onto card. An empty name or date is
// treated as absent.
func (p CardPatch) Apply(card *KpiCard) error {
	if p.Name != nil && *p.Name != "" {
		card.Name = *p.Name
	}
	if p.MinValue != nil {
		card.MinValue = *p.MinValue
	}
	if p.MaxValue != nil {
		card.MaxValue = *p.MaxValue
	}
	if p.Benchmark != nil {
		card.Benchmark = *p.Benchmark
	}
	if p.Achieved.Set {
		card.Achieved = p.Achieved.Ptr()
	}
	if p.Date != nil && *p.Date != "" {
		d, err := ParseCardDate(*p.Date)
		if err != nil {
			return err
		}
		card.Date = d
	}
	if p.Order != nil {
		card.Order = *p.Order
	}
	if p.IsDefault != nil {
		card.IsDefault = *p.IsDefault
	}
	if p.IsVisible != nil {
		card.IsVisible = *p.IsVisible
	}
	return nil
}

// Columns lists the kpi_cards columns Apply writes for this patch.
func (p CardPatch) Columns() []string {
	var cols []string
	if p.Name != nil && *p.Name != "" {
		cols = append(cols, ColName)
	}
	cols = append(cols, p.LinkedColumns()...)
	if p.Date != nil && *p.Date != "" {
		cols = append(cols, ColDate)
	}
	if p.Order != nil {
		cols = append(cols, ColOrder)
	}
	if p.IsDefault != nil {
		cols = append(cols, ColIsDefault)
	}
	if p.IsVisible != nil {
		cols = append(cols, ColIsVisible)
	}
	return cols
}

// LinkedColumns lists the present fields that propagate to the counterpart.
func (p CardPatch) LinkedColumns() []string {
	var cols []string
	if p.MinValue != nil {
		cols = append(cols, ColMinValue)
	}
	if p.MaxValue != nil {
		cols = append(cols, ColMaxValue)
	}
	if p.Benchmark != nil {
		cols = append(cols, ColBenchmark)
	}
	if p.Achieved.Set {
		cols = append(cols, ColAchieved)
	}
	return cols
}

// HasValues reports whether any of the linked numeric fields is present.
func (p CardPatch) HasValues() bool {
	return len(p.LinkedColumns()) > 0
}

var ErrInvalidDate = errors.New("invalid date")

// ParseCardDate accepts RFC 3339 timestamps and plain yyyy-mm-dd dates
// as sent by an <input type="date">.
func ParseCardDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
	}
	return t, nil
}
