// internal/app/store/oauthstate/oauthstatestore.go

// Package oauthstate keeps the one-time state values that tie a Google
// callback to the sign-in that started it.
package oauthstate

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const Collection = "oauth_states"

// TTL bounds how long a sign-in may sit on Google's consent screen.
const TTL = 10 * time.Minute

// ErrInvalid covers unknown, expired and already redeemed states.
var ErrInvalid = errors.New("oauthstate: invalid or expired state")

type State struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	State     string             `bson:"state"`
	ReturnTo  string             `bson:"return_to,omitempty"`
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
}

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection), now: time.Now}
}

// Issue stores a fresh random state remembering returnTo, which the caller
// has already checked is a local path.
func (s *Store) Issue(ctx context.Context, returnTo string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	now := s.now().UTC()
	_, err := s.c.InsertOne(ctx, State{
		ID:        primitive.NewObjectID(),
		State:     state,
		ReturnTo:  returnTo,
		ExpiresAt: now.Add(TTL),
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}
	return state, nil
}

// Redeem consumes state and returns the path stored with it. Each state
// redeems once.
func (s *Store) Redeem(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrInvalid
	}
	var st State
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": s.now()},
	}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrInvalid
	}
	if err != nil {
		return "", err
	}
	return st.ReturnTo, nil
}

// Cleanup deletes expired states ahead of the TTL monitor.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": s.now()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
