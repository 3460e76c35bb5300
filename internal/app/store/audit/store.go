// Package audit persists the audit trail: sign-ins, admin user changes and
// content edits, one document per event.
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CategoryAuth    = "auth"
	CategoryAdmin   = "admin"   // admin user management
	CategoryContent = "content" // site content edits and public submissions
)

// Sign-in events.
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedUserDisabled  = "login_failed_user_disabled"
	EventLoginLockedOut           = "login_locked_out"
	EventLogout                   = "logout"
	EventPasswordChanged          = "password_changed"
)

// Admin user events.
const (
	EventUserCreated  = "user_created"
	EventUserUpdated  = "user_updated"
	EventUserDisabled = "user_disabled"
	EventUserEnabled  = "user_enabled"
	EventUserDeleted  = "user_deleted"
)

// Content events.
const (
	EventContentCreated       = "content_created"
	EventContentUpdated       = "content_updated"
	EventContentDeleted       = "content_deleted"
	EventSingletonSaved       = "singleton_saved"
	EventImageAssigned        = "image_assigned"
	EventAssignmentRemoved    = "assignment_removed"
	EventTestimonialSubmitted = "testimonial_submitted"
	EventTestimonialApproved  = "testimonial_approved"
	EventDonationRecorded     = "donation_recorded"
)

// failedSignIn lists the auth events that count as a failed sign-in.
var failedSignIn = []string{
	EventLoginFailedUserNotFound,
	EventLoginFailedWrongPassword,
	EventLoginFailedUserDisabled,
	EventLoginLockedOut,
}

type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	Category  string             `bson:"category"`
	EventType string             `bson:"event_type"`

	// UserID is the account the event is about, ActorID the one who acted.
	// They differ for admin actions on other users.
	UserID  *primitive.ObjectID `bson:"user_id,omitempty"`
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty"`

	IP            string            `bson:"ip"`
	UserAgent     string            `bson:"user_agent,omitempty"`
	Success       bool              `bson:"success"`
	FailureReason string            `bson:"failure_reason,omitempty"`
	Details       map[string]string `bson:"details,omitempty"`
}

// Filter narrows Find and Count. Zero fields match everything.
type Filter struct {
	Category  string
	EventType string
	UserID    primitive.ObjectID
	Since     time.Time
	Until     time.Time
}

func (f Filter) query() bson.D {
	var q bson.D
	add := func(k string, v interface{}) { q = append(q, bson.E{Key: k, Value: v}) }
	if f.Category != "" {
		add("category", f.Category)
	}
	if f.EventType != "" {
		add("event_type", f.EventType)
	}
	if !f.UserID.IsZero() {
		add("user_id", f.UserID)
	}
	span := bson.M{}
	if !f.Since.IsZero() {
		span["$gte"] = f.Since
	}
	if !f.Until.IsZero() {
		span["$lte"] = f.Until
	}
	if len(span) > 0 {
		add("created_at", span)
	}
	if q == nil {
		q = bson.D{}
	}
	return q
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_logs")}
}

// Log inserts e, stamping the id and time when unset.
func (s *Store) Log(ctx context.Context, e Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// Find returns one page of matching events, newest first.
func (s *Store) Find(ctx context.Context, f Filter, skip, limit int64) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	cur, err := s.c.Find(ctx, f.query(), options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	events := []Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}

// Recent returns the latest events of any kind.
func (s *Store) Recent(ctx context.Context, limit int64) ([]Event, error) {
	return s.Find(ctx, Filter{}, 0, limit)
}

// ForUser returns the latest events about one account.
func (s *Store) ForUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Find(ctx, Filter{UserID: userID}, 0, limit)
}

// CountFailedSignIns counts failed and locked-out sign-ins since t.
func (s *Store) CountFailedSignIns(ctx context.Context, since time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"category":   CategoryAuth,
		"event_type": bson.M{"$in": failedSignIn},
		"created_at": bson.M{"$gte": since},
	})
}
