package bootstrap

import (
	"context"
	"fmt"

	"github.com/avvvet/kpi-services/internal/kpisvc/config"
	"github.com/avvvet/kpi-services/internal/kpisvc/db"
	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	"github.com/avvvet/kpi-services/internal/kpisvc/service"
	"github.com/avvvet/kpi-services/internal/kpisvc/store"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// CardStore is the card repository plus the admin-only whole-row save
// and bulk delete.
type CardStore interface {
	service.CardRepository
	Save(ctx context.Context, card *models.KpiCard) error
	DeleteAll(ctx context.Context) (int64, error)
}

// Stores holds the repositories selected by configuration and the
// connections behind them.
type Stores struct {
	Cards       CardStore
	Preferences service.PreferenceRepository

	pool  *pgxpool.Pool
	gdb   *gorm.DB
	mongo *mongo.Database
}

// OpenStores connects the card store named by DB_DRIVER and, when
// MONGODB_URI is set, moves preferences to MongoDB.
func OpenStores(ctx context.Context, cfg config.Config) (*Stores, error) {
	s := &Stores{}

	switch cfg.DBDriver {
	case config.DriverPostgres:
		if cfg.DBUrl == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for driver %s", cfg.DBDriver)
		}
		pool, err := db.Connect(ctx, cfg.DBUrl)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.pool = pool
		s.Cards = store.NewCardStore(pool)
		s.Preferences = store.NewPreferenceStore(pool)
		log.Infof("pg connection established successfully")
	case config.DriverSQLite:
		gdb, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.gdb = gdb
		s.Cards = store.NewGormCardStore(gdb)
		s.Preferences = store.NewGormPreferenceStore(gdb)
		log.Infof("sqlite database %s opened", cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.MongoURI != "" {
		mdb, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.mongo = mdb
		prefs := store.NewMongoPreferenceStore(mdb)
		if err := prefs.EnsureIndexes(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.Preferences = prefs
		log.Infof("mongodb preference store on database %s", mdb.Name())
	}

	return s, nil
}

// Migrate creates the relational schema. SQLite is migrated on open.
func (s *Stores) Migrate(ctx context.Context) error {
	if s.pool != nil {
		return db.Migrate(ctx, s.pool)
	}
	if s.gdb != nil {
		return db.AutoMigrate(s.gdb)
	}
	return nil
}

// Reset drops and recreates the relational schema.
func (s *Stores) Reset(ctx context.Context) error {
	if s.pool != nil {
		return db.Reset(ctx, s.pool)
	}
	if s.gdb != nil {
		return db.ResetSQLite(s.gdb)
	}
	return nil
}

func (s *Stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.gdb != nil {
		if sqlDB, err := s.gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if s.mongo != nil {
		if err := s.mongo.Client().Disconnect(context.Background()); err != nil {
			log.Warnf("mongodb disconnect: %s", err)
		}
	}
}
