package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

const cardColumns = `id, name, min_value, max_value, benchmark, achieved, date,
	sort_order, is_default, is_visible, pair_id, created_at, updated_at`

type CardStore struct {
	db *pgxpool.Pool
}

func NewCardStore(db *pgxpool.Pool) *CardStore {
	return &CardStore{db: db}
}

func scanCard(row pgx.Row) (*models.KpiCard, error) {
	var c models.KpiCard
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.MinValue,
		&c.MaxValue,
		&c.Benchmark,
		&c.Achieved,
		&c.Date,
		&c.Order,
		&c.IsDefault,
		&c.IsVisible,
		&c.PairID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CardStore) queryCards(ctx context.Context, query string, args ...any) ([]*models.KpiCard, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []*models.KpiCard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (s *CardStore) ListVisible(ctx context.Context) ([]*models.KpiCard, error) {
	cards, err := s.queryCards(ctx, `
		SELECT `+cardColumns+`
		FROM kpi_cards
		WHERE is_visible = true
		ORDER BY sort_order ASC, created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible cards: %w", err)
	}
	return cards, nil
}

func (s *CardStore) ListHidden(ctx context.Context) ([]*models.KpiCard, error) {
	cards, err := s.queryCards(ctx, `
		SELECT `+cardColumns+`
		FROM kpi_cards
		WHERE is_visible = false
		ORDER BY sort_order ASC, created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hidden cards: %w", err)
	}
	return cards, nil
}

func (s *CardStore) ListAll(ctx context.Context) ([]*models.KpiCard, error) {
	cards, err := s.queryCards(ctx, `
		SELECT `+cardColumns+`
		FROM kpi_cards
		ORDER BY sort_order ASC, created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, nil
}

func (s *CardStore) GetByID(ctx context.Context, id string) (*models.KpiCard, error) {
	card, err := scanCard(s.db.QueryRow(ctx, `
		SELECT `+cardColumns+`
		FROM kpi_cards
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return card, nil
}

func (s *CardStore) FindDefaultByName(ctx context.Context, name string) (*models.KpiCard, error) {
	card, err := scanCard(s.db.QueryRow(ctx, `
		SELECT `+cardColumns+`
		FROM kpi_cards
		WHERE name = $1 AND is_default = true
		ORDER BY created_at ASC
		LIMIT 1
	`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find default card %q: %w", name, err)
	}
	return card, nil
}

// Create inserts card, assigning an id when it has none.
func (s *CardStore) Create(ctx context.Context, card *models.KpiCard) error {
	if card.ID == "" {
		card.ID = uuid.New().String()
	}

	query := `
		INSERT INTO kpi_cards (id, name, min_value, max_value, benchmark, achieved, date,
			sort_order, is_default, is_visible, pair_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRow(ctx, query,
		card.ID, card.Name, card.MinValue, card.MaxValue, card.Benchmark, card.Achieved, card.Date,
		card.Order, card.IsDefault, card.IsVisible, card.PairID,
	).Scan(&card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not create card: %w", err)
	}
	return nil
}

// Save overwrites every mutable column of the card identified by card.ID.
func (s *CardStore) Save(ctx context.Context, card *models.KpiCard) error {
	query := `
		UPDATE kpi_cards
		SET name = $2, min_value = $3, max_value = $4, benchmark = $5, achieved = $6, date = $7,
			sort_order = $8, is_default = $9, is_visible = $10, pair_id = $11, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := s.db.QueryRow(ctx, query,
		card.ID, card.Name, card.MinValue, card.MaxValue, card.Benchmark, card.Achieved, card.Date,
		card.Order, card.IsDefault, card.IsVisible, card.PairID,
	).Scan(&card.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("could not update card %s: %w", card.ID, err)
	}
	return nil
}

var cardColumnValues = map[string]func(c *models.KpiCard) any{
	models.ColName:      func(c *models.KpiCard) any { return c.Name },
	models.ColMinValue:  func(c *models.KpiCard) any { return c.MinValue },
	models.ColMaxValue:  func(c *models.KpiCard) any { return c.MaxValue },
	models.ColBenchmark: func(c *models.KpiCard) any { return c.Benchmark },
	models.ColAchieved:  func(c *models.KpiCard) any { return c.Achieved },
	models.ColDate:      func(c *models.KpiCard) any { return c.Date },
	models.ColOrder:     func(c *models.KpiCard) any { return c.Order },
	models.ColIsDefault: func(c *models.KpiCard) any { return c.IsDefault },
	models.ColIsVisible: func(c *models.KpiCard) any { return c.IsVisible },
	models.ColPairID:    func(c *models.KpiCard) any { return c.PairID },
}

// SaveFields writes only the named columns of card, so concurrent edits
// of different fields do not overwrite each other.
func (s *CardStore) SaveFields(ctx context.Context, card *models.KpiCard, columns []string) error {
	sets := make([]string, 0, len(columns)+1)
	args := []any{card.ID}
	for _, col := range columns {
		value, ok := cardColumnValues[col]
		if !ok {
			return fmt.Errorf("could not update card %s: unknown column %q", card.ID, col)
		}
		args = append(args, value(card))
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	sets = append(sets, "updated_at = now()")

	query := `UPDATE kpi_cards SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING updated_at`
	err := s.db.QueryRow(ctx, query, args...).Scan(&card.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("could not update card %s: %w", card.ID, err)
	}
	return nil
}

func (s *CardStore) SetVisible(ctx context.Context, id string, visible bool) (*models.KpiCard, error) {
	card, err := scanCard(s.db.QueryRow(ctx, `
		UPDATE kpi_cards
		SET is_visible = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+cardColumns, id, visible))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not set visibility of card %s: %w", id, err)
	}
	return card, nil
}

// Reorder writes every entry in one transaction. An unknown id rolls
// back the whole batch.
func (s *CardStore) Reorder(ctx context.Context, entries []models.OrderEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	for _, e := range entries {
		tag, err := tx.Exec(ctx, `
			UPDATE kpi_cards SET sort_order = $2, updated_at = $3 WHERE id = $1
		`, e.ID, e.Order, now)
		if err != nil {
			return fmt.Errorf("reorder card %s: %w", e.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("reorder card %s: %w", e.ID, ErrNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}

// DeleteAll physically removes every card. Only the admin CLI calls it.
func (s *CardStore) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM kpi_cards`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cards: %w", err)
	}
	return tag.RowsAffected(), nil
}
