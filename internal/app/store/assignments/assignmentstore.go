// internal/app/store/assignments/assignmentstore.go
package assignmentstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/gicesite/internal/app/system/categories"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoImage is returned when the source item has no image to copy.
var ErrNoImage = errors.New("the selected item has no image")

// Store manages section assignments. Each assignment is an independent copy
// of a source item's title and image URL.
type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Assign copies src into the section collection under category.
func (s *Store) Assign(ctx context.Context, collection, category string, src models.Document) (models.AssignedImage, error) {
	url := strings.TrimSpace(src.String("image_url"))
	if url == "" {
		return models.AssignedImage{}, ErrNoImage
	}
	category = strings.Join(strings.Fields(category), " ")

	a := models.AssignedImage{
		ID:         primitive.NewObjectID(),
		Category:   category,
		CategoryCI: categories.Fold(category),
		Title:      src.String("title"),
		ImageURL:   url,
		SourceID:   src.ID(),
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.db.Collection(collection).InsertOne(ctx, a); err != nil {
		return models.AssignedImage{}, err
	}
	return a, nil
}

// List returns a section's assignments, newest first. A non-blank category
// limits the result to that category, compared case-insensitively.
func (s *Store) List(ctx context.Context, collection, category string) ([]models.AssignedImage, error) {
	filter := bson.M{}
	if folded := categories.Fold(category); folded != "" {
		filter["category_ci"] = folded
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.AssignedImage
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Categories returns the distinct category labels used in a section.
func (s *Store) Categories(ctx context.Context, collection string) ([]string, error) {
	vals, err := s.db.Collection(collection).Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok && str != "" {
			out = append(out, str)
		}
	}
	return out, nil
}

// Delete removes one assignment. The source item is untouched.
func (s *Store) Delete(ctx context.Context, collection string, id primitive.ObjectID) (int64, error) {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
