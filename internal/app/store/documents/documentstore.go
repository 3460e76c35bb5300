// internal/app/store/documents/documentstore.go
//
// Package documentstore reads and writes the schema-driven content
// collections. Documents are field maps; the schema decides which collections
// exist and how they sort.
package documentstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/gicesite/internal/app/system/categories"
	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned by Update when no document has the given id.
var ErrNotFound = errors.New("document not found")

type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// List returns every document in the collection, ordered by the schema's
// sort field (then _id) when one is declared.
func (s *Store) List(ctx context.Context, schema *collections.Schema) ([]models.Document, error) {
	opts := options.Find()
	if sort := sortFor(schema); sort != nil {
		opts.SetSort(sort)
	}
	return s.find(ctx, schema.Collection(), bson.M{}, opts)
}

// ListByCategory returns the documents whose categories field contains target,
// compared case-insensitively with surrounding whitespace ignored. Documents
// written before the folded copy existed are matched in memory.
func (s *Store) ListByCategory(ctx context.Context, schema *collections.Schema, field, target string) ([]models.Document, error) {
	f, ok := schema.FieldSet().Field(field)
	if !ok || f.Kind != collections.KindCategories {
		return nil, fmt.Errorf("%s has no categories field %q", schema.Name, field)
	}
	folded := categories.Fold(target)
	if folded == "" {
		return s.List(ctx, schema)
	}

	filter := bson.M{"$or": bson.A{
		bson.M{f.FoldedKey(): folded},
		bson.M{f.FoldedKey(): bson.M{"$exists": false}},
	}}
	opts := options.Find()
	if sort := sortFor(schema); sort != nil {
		opts.SetSort(sort)
	}
	docs, err := s.find(ctx, schema.Collection(), filter, opts)
	if err != nil {
		return nil, err
	}

	out := docs[:0]
	for _, d := range docs {
		if _, hasFolded := d[f.FoldedKey()]; hasFolded || categories.Match(d[field], target) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Get loads one document. Returns mongo.ErrNoDocuments if not found.
func (s *Store) Get(ctx context.Context, collection, id string) (models.Document, error) {
	var raw bson.M
	if err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": KeyFor(id)}).Decode(&raw); err != nil {
		return nil, err
	}
	return toDocument(raw), nil
}

// Create inserts a new document with a fresh ObjectID and server timestamps.
func (s *Store) Create(ctx context.Context, collection string, values collections.Values) (models.Document, error) {
	now := time.Now().UTC()
	doc := bson.M{}
	for k, v := range values {
		doc[k] = v
	}
	oid := primitive.NewObjectID()
	doc["_id"] = oid
	doc["created_at"] = now
	doc["updated_at"] = now

	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return toDocument(doc), nil
}

// Update merges patch into the stored document with $set. Keys absent from
// patch are left as they are.
func (s *Store) Update(ctx context.Context, collection, id string, patch collections.Values) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range patch {
		if k == "_id" || k == "id" || k == "created_at" {
			continue
		}
		set[k] = v
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": KeyFor(id)}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one document and returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, collection, id string) (int64, error) {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": KeyFor(id)})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	return s.db.Collection(collection).CountDocuments(ctx, bson.M{})
}

// KeyFor maps an id from a URL back to its stored _id: 24-hex ids are
// ObjectIDs, anything else is used as a string key.
func KeyFor(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func (s *Store) find(ctx context.Context, collection string, filter bson.M, opts *options.FindOptions) ([]models.Document, error) {
	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Document, 0, len(raw))
	for _, m := range raw {
		out = append(out, toDocument(m))
	}
	return out, nil
}

func sortFor(schema *collections.Schema) bson.D {
	key, desc := schema.SortField()
	if key == "" {
		return nil
	}
	dir := 1
	if desc {
		dir = -1
	}
	return bson.D{{Key: key, Value: dir}, {Key: "_id", Value: dir}}
}

func toDocument(m bson.M) models.Document {
	d := models.Document(m)
	d["id"] = models.IDString(m["_id"])
	return d
}
