// internal/app/store/sessions/store.go
//
// Package sessions records dashboard sign-ins. The cookie carries a random
// token; the record for that token says who signed in, from where, and when
// the session ended.
package sessions

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "sessions"

// End reasons.
const (
	EndReasonLogout  = "logout"
	EndReasonRevoked = "revoked" // account disabled or deleted
)

type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Method    string             `bson:"method"` // password, google
	IPAddress string             `bson:"ip_address,omitempty"`
	UserAgent string             `bson:"user_agent,omitempty"`
	LoginAt   time.Time          `bson:"login_at"`
	ExpiresAt time.Time          `bson:"expires_at"` // TTL

	LogoutAt     *time.Time `bson:"logout_at,omitempty"`
	EndReason    string     `bson:"end_reason,omitempty"`
	DurationSecs int64      `bson:"duration_secs,omitempty"`
}

// Open reports whether the session is still running.
func (s Session) Open() bool {
	return s.LogoutAt == nil && time.Now().Before(s.ExpiresAt)
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Open inserts the record for a new sign-in.
func (s *Store) Open(ctx context.Context, sess Session) error {
	if sess.ID.IsZero() {
		sess.ID = primitive.NewObjectID()
	}
	if sess.LoginAt.IsZero() {
		sess.LoginAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, sess)
	return err
}

// Close marks the open session for token as ended. The first close wins;
// later calls and unknown tokens are no-ops.
func (s *Store) Close(ctx context.Context, token, reason string) error {
	now := time.Now().UTC()
	var before Session
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"token": token, "logout_at": nil},
		bson.M{"$set": bson.M{"logout_at": now, "end_reason": reason}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	secs := int64(now.Sub(before.LoginAt) / time.Second)
	_, err = s.c.UpdateByID(ctx, before.ID, bson.M{"$set": bson.M{"duration_secs": secs}})
	return err
}

// CloseByUser ends every open session of userID, for example when the
// account is disabled, and returns how many it closed.
func (s *Store) CloseByUser(ctx context.Context, userID primitive.ObjectID, reason string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "logout_at": nil},
		bson.M{"$set": bson.M{"logout_at": time.Now().UTC(), "end_reason": reason}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Recent lists userID's latest sign-ins, newest first.
func (s *Store) Recent(ctx context.Context, userID primitive.ObjectID, limit int64) ([]Session, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "login_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	out := []Session{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountOpen counts sessions neither closed nor past expiry.
func (s *Store) CountOpen(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"logout_at":  nil,
		"expires_at": bson.M{"$gt": time.Now()},
	})
}
