// internal/app/store/singletons/singletonstore.go
package singletonstore

import (
	"context"
	"time"

	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads and writes single-document configs. Each lives at a fixed _id,
// so a save is an upsert and there is never more than one.
type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Get returns the stored document, or found=false if it has never been saved.
func (s *Store) Get(ctx context.Context, def *collections.Singleton) (doc models.Document, found bool, err error) {
	var raw bson.M
	err = s.db.Collection(def.Collection).FindOne(ctx, bson.M{"_id": def.ID}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return models.Document{"id": def.ID}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	doc = models.Document(raw)
	doc["id"] = def.ID
	return doc, true, nil
}

// Save merges values into the document, creating it on first save.
// Reports whether this save created it.
func (s *Store) Save(ctx context.Context, def *collections.Singleton, values collections.Values) (created bool, err error) {
	now := time.Now().UTC()
	set := bson.M{"updated_at": now}
	for k, v := range values {
		if k == "_id" || k == "id" || k == "created_at" {
			continue
		}
		set[k] = v
	}
	res, err := s.db.Collection(def.Collection).UpdateOne(ctx,
		bson.M{"_id": def.ID},
		bson.M{"$set": set, "$setOnInsert": bson.M{"created_at": now}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}
