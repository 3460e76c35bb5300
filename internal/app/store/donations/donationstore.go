// internal/app/store/donations/donationstore.go
package donationstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/gicesite/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoPaymentID is returned when a donation lacks the gateway payment id.
var ErrNoPaymentID = errors.New("payment id is required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("donations")}
}

// Record stores a verified donation keyed by its payment id. Confirming the
// same payment again returns the existing record with created=false.
func (s *Store) Record(ctx context.Context, d models.Donation) (stored models.Donation, created bool, err error) {
	d.PaymentID = strings.TrimSpace(d.PaymentID)
	if d.PaymentID == "" {
		return models.Donation{}, false, ErrNoPaymentID
	}
	if d.Status == "" {
		d.Status = models.DonationStatusCaptured
	}
	d.ID = primitive.NewObjectID()
	d.CreatedAt = time.Now().UTC()

	res, err := s.c.UpdateOne(ctx,
		bson.M{"payment_id": d.PaymentID},
		bson.M{"$setOnInsert": d},
		options.Update().SetUpsert(true),
	)
	if err != nil && !wafflemongo.IsDup(err) {
		return models.Donation{}, false, err
	}
	// A duplicate key error means a concurrent confirm inserted it first.
	created = err == nil && res.UpsertedCount > 0

	got, err := s.GetByPaymentID(ctx, d.PaymentID)
	if err != nil {
		return models.Donation{}, false, err
	}
	return *got, created, nil
}

// GetByPaymentID returns mongo.ErrNoDocuments when the payment is unknown.
func (s *Store) GetByPaymentID(ctx context.Context, paymentID string) (*models.Donation, error) {
	var d models.Donation
	if err := s.c.FindOne(ctx, bson.M{"payment_id": strings.TrimSpace(paymentID)}).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns donations newest first, at most limit (0 = all).
func (s *Store) List(ctx context.Context, limit int64) ([]models.Donation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Donation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Totals sums captured donations per currency.
func (s *Store) Totals(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.DonationStatusCaptured}}},
		{{Key: "$group", Value: bson.M{"_id": "$currency", "total": bson.M{"$sum": "$amount"}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Currency string `bson:"_id"`
		Total    int64  `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Currency] = r.Total
	}
	return out, nil
}
