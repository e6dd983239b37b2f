package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const preferenceCollection = "user_preferences"

// MongoPreferenceStore keeps one document per user in user_preferences.
type MongoPreferenceStore struct {
	coll *mongo.Collection
}

func NewMongoPreferenceStore(db *mongo.Database) *MongoPreferenceStore {
	return &MongoPreferenceStore{coll: db.Collection(preferenceCollection)}
}

// EnsureIndexes creates the unique user_id index.
func (s *MongoPreferenceStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"user_id": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create user_id index: %w", err)
	}
	return nil
}

func (s *MongoPreferenceStore) Get(ctx context.Context, userID string) (*models.UserPreference, error) {
	var p models.UserPreference
	err := s.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get preferences for %s: %w", userID, err)
	}
	return &p, nil
}

func (s *MongoPreferenceStore) Upsert(ctx context.Context, pref *models.UserPreference) (*models.UserPreference, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"layout":     pref.Layout,
			"card_order": pref.CardOrder,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"user_id":    pref.UserID,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var p models.UserPreference
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"user_id": pref.UserID}, update, opts).Decode(&p)
	if err != nil {
		return nil, fmt.Errorf("upsert preferences for %s: %w", pref.UserID, err)
	}
	return &p, nil
}
