package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed cards.yaml
var defaultCards []byte

type CardSeed struct {
	Name      string   `yaml:"name"`
	MinValue  float64  `yaml:"minValue"`
	MaxValue  float64  `yaml:"maxValue"`
	Benchmark float64  `yaml:"benchmark"`
	Achieved  *float64 `yaml:"achieved"`
	Order     int      `yaml:"order"`
	IsDefault bool     `yaml:"isDefault"`
	IsVisible bool     `yaml:"isVisible"`
}

type file struct {
	Cards []CardSeed `yaml:"cards"`
}

// Repository is the subset of the card store the seeder writes through.
type Repository interface {
	ListAll(ctx context.Context) ([]*models.KpiCard, error)
	Create(ctx context.Context, card *models.KpiCard) error
	Save(ctx context.Context, card *models.KpiCard) error
}

type Result struct {
	Created int
	Updated int
}

func Parse(data []byte) ([]CardSeed, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, c := range f.Cards {
		if c.Name == "" {
			return nil, fmt.Errorf("seed card %d has no name", i)
		}
	}
	return f.Cards, nil
}

// Default returns the predefined card set shipped with the service.
func Default() ([]CardSeed, error) {
	return Parse(defaultCards)
}

func LoadFile(path string) ([]CardSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Apply writes seeds by name: every existing card with a seed's name is
// overwritten with the seed values, otherwise a new card is inserted.
func Apply(ctx context.Context, repo Repository, seeds []CardSeed, now time.Time) (Result, error) {
	var res Result

	existing, err := repo.ListAll(ctx)
	if err != nil {
		return res, err
	}
	byName := make(map[string][]*models.KpiCard)
	for _, c := range existing {
		byName[c.Name] = append(byName[c.Name], c)
	}

	for _, s := range seeds {
		if cards, ok := byName[s.Name]; ok {
			for _, c := range cards {
				s.applyTo(c, now)
				if err := repo.Save(ctx, c); err != nil {
					return res, fmt.Errorf("update seeded card %q: %w", s.Name, err)
				}
			}
			res.Updated++
			log.Infof("Updated existing card: %s", s.Name)
			continue
		}

		card := &models.KpiCard{}
		s.applyTo(card, now)
		if err := repo.Create(ctx, card); err != nil {
			return res, fmt.Errorf("create seeded card %q: %w", s.Name, err)
		}
		res.Created++
		log.Infof("Added new card: %s", s.Name)
	}

	return res, nil
}

func (s CardSeed) applyTo(c *models.KpiCard, now time.Time) {
	c.Name = s.Name
	c.MinValue = s.MinValue
	c.MaxValue = s.MaxValue
	c.Benchmark = s.Benchmark
	c.Achieved = s.Achieved
	c.Order = s.Order
	c.IsDefault = s.IsDefault
	c.IsVisible = s.IsVisible
	c.Date = now
}
