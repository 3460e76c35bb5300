// internal/app/store/ratelimit/store.go
//
// Package ratelimit locks an email out of password sign-in after too many
// failures inside a window. Counts live in MongoDB so every instance sees
// the same lockout.
package ratelimit

import (
	"context"
	"time"

	"github.com/dalemusser/gicesite/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection holds one record per email with recent failures.
const Collection = "signin_failures"

// Record is the failure counter for one email.
type Record struct {
	Email       string     `bson:"email"`
	Count       int        `bson:"count"`
	WindowStart time.Time  `bson:"window_start"`
	LockedUntil *time.Time `bson:"locked_until,omitempty"`
	LastAttempt time.Time  `bson:"last_attempt"`
}

// Store counts failed sign-ins.
type Store struct {
	c       *mongo.Collection
	max     int
	window  time.Duration
	lockout time.Duration
	now     func() time.Time
}

// New creates a Store that locks an email for lockout after max failures
// within window.
func New(db *mongo.Database, max int, window, lockout time.Duration) *Store {
	return &Store{
		c:       db.Collection(Collection),
		max:     max,
		window:  window,
		lockout: lockout,
		now:     time.Now,
	}
}

// Locked reports whether email is locked out, and until when. Lookup errors
// fail open.
func (s *Store) Locked(ctx context.Context, email string) (time.Time, bool) {
	var rec Record
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&rec)
	if err != nil || rec.LockedUntil == nil {
		return time.Time{}, false
	}
	if s.now().Before(*rec.LockedUntil) {
		return *rec.LockedUntil, true
	}
	return time.Time{}, false
}

// Fail counts one failure and reports whether it locked the email out.
// The counter restarts when the previous window has passed. The whole
// read-modify-write runs as one pipeline update so concurrent failures
// are all counted.
func (s *Store) Fail(ctx context.Context, email string) (time.Time, bool, error) {
	now := s.now().UTC()
	stale := bson.D{{Key: "$lt", Value: bson.A{"$window_start", now.Add(-s.window)}}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "count", Value: bson.D{{Key: "$cond", Value: bson.A{
				stale,
				1,
				bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$count", 0}}}, 1}}},
			}}}},
			{Key: "window_start", Value: bson.D{{Key: "$cond", Value: bson.A{stale, now, "$window_start"}}}},
			{Key: "last_attempt", Value: now},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "locked_until", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gte", Value: bson.A{"$count", s.max}}},
				now.Add(s.lockout),
				"$locked_until",
			}}}},
		}}},
	}

	var rec Record
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"email": normalize.Email(email)},
		pipeline,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&rec)
	if err != nil {
		return time.Time{}, false, err
	}
	if rec.LockedUntil != nil && now.Before(*rec.LockedUntil) {
		return *rec.LockedUntil, true, nil
	}
	return time.Time{}, false, nil
}

// Clear forgets the failures for email after a successful sign-in.
func (s *Store) Clear(ctx context.Context, email string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"email": normalize.Email(email)})
	return err
}
