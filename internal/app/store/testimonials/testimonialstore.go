// internal/app/store/testimonials/testimonialstore.go
package testimonialstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/gicesite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrInvalid is returned when a testimonial is missing required fields.
var ErrInvalid = errors.New("testimonial needs a name, a message and a rating from 1 to 5")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("testimonials")}
}

// Create inserts a testimonial. Pending is taken from t as given: public
// submissions set it, staff-entered testimonials do not.
func (s *Store) Create(ctx context.Context, t models.Testimonial) (models.Testimonial, error) {
	t.Name = strings.TrimSpace(t.Name)
	t.Body = strings.TrimSpace(t.Body)
	t.Role = strings.TrimSpace(t.Role)
	if t.Name == "" || t.Body == "" || t.Rating < models.MinRating || t.Rating > models.MaxRating {
		return models.Testimonial{}, ErrInvalid
	}
	if t.PhotoKind == "" {
		t.PhotoKind = models.PhotoNone
	}

	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Testimonial{}, err
	}
	return t, nil
}

// GetByID loads a testimonial.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Testimonial, error) {
	var t models.Testimonial
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListPublic returns approved testimonials, newest first. Pending ones are
// never included.
func (s *Store) ListPublic(ctx context.Context, limit int64) ([]models.Testimonial, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, bson.M{"pending": bson.M{"$ne": true}}, opts)
}

// ListAll returns every testimonial for moderation: pending first, then newest.
func (s *Store) ListAll(ctx context.Context) ([]models.Testimonial, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "pending", Value: -1},
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})
	return s.find(ctx, bson.M{}, opts)
}

// Approve clears the pending flag. Approving an already approved testimonial
// is a no-op that still succeeds.
func (s *Store) Approve(ctx context.Context, id primitive.ObjectID, approverName string) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "pending": true},
		bson.M{"$set": bson.M{
			"pending":          false,
			"approved_at":      now,
			"approved_by_name": approverName,
			"updated_at":       now,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return mongo.ErrNoDocuments
		}
	}
	return nil
}

// UpdateInput holds the optional fields of a staff edit.
// Nil means "don't update this field".
type UpdateInput struct {
	Name      *string
	Role      *string
	Body      *string
	Rating    *int
	ImageURL  *string
	PhotoKind *models.PhotoKind
}

// Update applies a partial edit.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return ErrInvalid
		}
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Role != nil {
		set["role"] = strings.TrimSpace(*in.Role)
	}
	if in.Body != nil {
		if strings.TrimSpace(*in.Body) == "" {
			return ErrInvalid
		}
		set["body"] = strings.TrimSpace(*in.Body)
	}
	if in.Rating != nil {
		if *in.Rating < models.MinRating || *in.Rating > models.MaxRating {
			return ErrInvalid
		}
		set["rating"] = *in.Rating
	}
	if in.ImageURL != nil {
		set["image_url"] = *in.ImageURL
	}
	if in.PhotoKind != nil {
		set["photo_kind"] = *in.PhotoKind
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a testimonial and returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountPending returns the number of testimonials awaiting approval.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"pending": true})
}

// ListPendingSince returns pending testimonials submitted after t, oldest first.
func (s *Store) ListPendingSince(ctx context.Context, t time.Time) ([]models.Testimonial, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return s.find(ctx, bson.M{"pending": true, "created_at": bson.M{"$gt": t}}, opts)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Testimonial, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Testimonial
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
