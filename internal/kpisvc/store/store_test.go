package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/avvvet/kpi-services/internal/kpisvc/db"
	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cardStore interface {
	ListVisible(ctx context.Context) ([]*models.KpiCard, error)
	ListHidden(ctx context.Context) ([]*models.KpiCard, error)
	ListAll(ctx context.Context) ([]*models.KpiCard, error)
	GetByID(ctx context.Context, id string) (*models.KpiCard, error)
	FindDefaultByName(ctx context.Context, name string) (*models.KpiCard, error)
	Create(ctx context.Context, card *models.KpiCard) error
	Save(ctx context.Context, card *models.KpiCard) error
	SaveFields(ctx context.Context, card *models.KpiCard, columns []string) error
	SetVisible(ctx context.Context, id string, visible bool) (*models.KpiCard, error)
	Reorder(ctx context.Context, entries []models.OrderEntry) error
	DeleteAll(ctx context.Context) (int64, error)
}

type preferenceStore interface {
	Get(ctx context.Context, userID string) (*models.UserPreference, error)
	Upsert(ctx context.Context, pref *models.UserPreference) (*models.UserPreference, error)
}

func openGorm(t *testing.T) (*GormCardStore, *GormPreferenceStore) {
	t.Helper()
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "kpi.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewGormCardStore(gdb), NewGormPreferenceStore(gdb)
}

func TestGormCardStore(t *testing.T) {
	cards, _ := openGorm(t)
	runCardStoreTests(t, cards)
}

func TestGormPreferenceStore(t *testing.T) {
	_, prefs := openGorm(t)
	runPreferenceStoreTests(t, prefs)
}

func TestPostgresStores(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, db.Reset(ctx, pool))

	t.Run("cards", func(t *testing.T) { runCardStoreTests(t, NewCardStore(pool)) })
	t.Run("preferences", func(t *testing.T) { runPreferenceStoreTests(t, NewPreferenceStore(pool)) })
}

func TestMongoPreferenceStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}
	ctx := context.Background()
	mdb, err := db.ConnectMongo(ctx, uri)
	require.NoError(t, err)
	defer mdb.Client().Disconnect(ctx)
	require.NoError(t, mdb.Collection(preferenceCollection).Drop(ctx))

	prefs := NewMongoPreferenceStore(mdb)
	require.NoError(t, prefs.EnsureIndexes(ctx))
	runPreferenceStoreTests(t, prefs)
}

func runCardStoreTests(t *testing.T, s cardStore) {
	ctx := context.Background()
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	achieved := 75.0

	coils := &models.KpiCard{Name: "Coils/HR", MaxValue: 100, Benchmark: 80, Achieved: &achieved, Date: date, Order: 1, IsDefault: true, IsVisible: true}
	hidden := &models.KpiCard{Name: "Scrap Rate", MaxValue: 100, Date: date, Order: 0, IsVisible: false}
	first := &models.KpiCard{Name: "Downtime", MaxValue: 100, Date: date, Order: 0, IsVisible: true}

	for _, c := range []*models.KpiCard{coils, hidden, first} {
		require.NoError(t, s.Create(ctx, c))
		require.NotEmpty(t, c.ID)
	}

	t.Run("get round trip", func(t *testing.T) {
		got, err := s.GetByID(ctx, coils.ID)
		require.NoError(t, err)
		assert.Equal(t, "Coils/HR", got.Name)
		assert.Equal(t, 80.0, got.Benchmark)
		require.NotNil(t, got.Achieved)
		assert.Equal(t, 75.0, *got.Achieved)
		assert.True(t, got.Date.Equal(date))
		assert.True(t, got.IsDefault)
		assert.Nil(t, got.PairID)

		got, err = s.GetByID(ctx, hidden.ID)
		require.NoError(t, err)
		assert.False(t, got.IsVisible, "created hidden stays hidden")
		assert.Nil(t, got.Achieved)

		_, err = s.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list by visibility in order", func(t *testing.T) {
		visible, err := s.ListVisible(ctx)
		require.NoError(t, err)
		require.Len(t, visible, 2)
		assert.Equal(t, first.ID, visible[0].ID)
		assert.Equal(t, coils.ID, visible[1].ID)

		hiddenCards, err := s.ListHidden(ctx)
		require.NoError(t, err)
		require.Len(t, hiddenCards, 1)
		assert.Equal(t, hidden.ID, hiddenCards[0].ID)

		all, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("find default by name", func(t *testing.T) {
		got, err := s.FindDefaultByName(ctx, "Coils/HR")
		require.NoError(t, err)
		assert.Equal(t, coils.ID, got.ID)

		_, err = s.FindDefaultByName(ctx, "Downtime")
		assert.ErrorIs(t, err, ErrNotFound, "non-default cards are not matched")
	})

	t.Run("save", func(t *testing.T) {
		got, err := s.GetByID(ctx, coils.ID)
		require.NoError(t, err)
		got.Achieved = nil
		got.Benchmark = 90
		pair := first.ID
		got.PairID = &pair
		require.NoError(t, s.Save(ctx, got))

		again, err := s.GetByID(ctx, coils.ID)
		require.NoError(t, err)
		assert.Nil(t, again.Achieved)
		assert.Equal(t, 90.0, again.Benchmark)
		require.NotNil(t, again.PairID)
		assert.Equal(t, first.ID, *again.PairID)

		missing := *again
		missing.ID = "00000000-0000-0000-0000-000000000000"
		assert.ErrorIs(t, s.Save(ctx, &missing), ErrNotFound)
	})

	t.Run("save fields keeps other columns", func(t *testing.T) {
		a, err := s.GetByID(ctx, first.ID)
		require.NoError(t, err)
		b, err := s.GetByID(ctx, first.ID)
		require.NoError(t, err)

		a.Benchmark = 42
		a.Achieved = &achieved
		require.NoError(t, s.SaveFields(ctx, a, []string{models.ColBenchmark, models.ColAchieved}))

		// b was read before a's write and edits a different field
		b.Name = "Unplanned Downtime"
		require.NoError(t, s.SaveFields(ctx, b, []string{models.ColName}))

		got, err := s.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Unplanned Downtime", got.Name)
		assert.Equal(t, 42.0, got.Benchmark)
		require.NotNil(t, got.Achieved)
		assert.Equal(t, 75.0, *got.Achieved)
		assert.Equal(t, 0, got.Order)

		got.Achieved = nil
		require.NoError(t, s.SaveFields(ctx, got, []string{models.ColAchieved}))
		again, err := s.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Nil(t, again.Achieved)

		missing := *again
		missing.ID = "00000000-0000-0000-0000-000000000000"
		assert.ErrorIs(t, s.SaveFields(ctx, &missing, []string{models.ColName}), ErrNotFound)
		assert.Error(t, s.SaveFields(ctx, again, []string{"id"}))
	})

	t.Run("set visible", func(t *testing.T) {
		got, err := s.SetVisible(ctx, hidden.ID, true)
		require.NoError(t, err)
		assert.True(t, got.IsVisible)

		got, err = s.SetVisible(ctx, hidden.ID, false)
		require.NoError(t, err)
		assert.False(t, got.IsVisible)

		_, err = s.SetVisible(ctx, "00000000-0000-0000-0000-000000000000", false)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("reorder is all or nothing", func(t *testing.T) {
		err := s.Reorder(ctx, []models.OrderEntry{
			{ID: first.ID, Order: 9},
			{ID: "00000000-0000-0000-0000-000000000000", Order: 1},
		})
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := s.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Order)

		require.NoError(t, s.Reorder(ctx, []models.OrderEntry{
			{ID: first.ID, Order: 5},
			{ID: coils.ID, Order: 0},
		}))
		visible, err := s.ListVisible(ctx)
		require.NoError(t, err)
		assert.Equal(t, coils.ID, visible[0].ID)
		assert.Equal(t, first.ID, visible[1].ID)
	})

	t.Run("delete all", func(t *testing.T) {
		n, err := s.DeleteAll(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		all, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func runPreferenceStoreTests(t *testing.T, s preferenceStore) {
	ctx := context.Background()

	_, err := s.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	saved, err := s.Upsert(ctx, &models.UserPreference{UserID: "u1", Layout: "grid", CardOrder: `["a","b"]`})
	require.NoError(t, err)
	assert.Equal(t, "grid", saved.Layout)

	saved, err = s.Upsert(ctx, &models.UserPreference{UserID: "u1", Layout: "list", CardOrder: `["b"]`})
	require.NoError(t, err)
	assert.Equal(t, "list", saved.Layout)
	assert.Equal(t, `["b"]`, saved.CardOrder)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "list", got.Layout)
	assert.False(t, got.CreatedAt.IsZero())
}
