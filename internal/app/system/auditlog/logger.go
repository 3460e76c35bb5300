// internal/app/system/auditlog/logger.go

// Package auditlog turns security and content events into audit records.
// Each category can go to MongoDB, to the zap log, to both or nowhere.
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/gicesite/internal/app/store/audit"
	"github.com/dalemusser/gicesite/internal/app/system/network"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations accepted per category.
const (
	ModeAll = "all" // MongoDB and zap
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// ValidMode reports whether m is a known destination. Empty means ModeAll.
func ValidMode(m string) bool {
	switch m {
	case "", ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Config picks the destination for each event category.
type Config struct {
	Auth    string // sign-in, sign-out, password changes
	Admin   string // admin user management
	Content string // content edits, testimonials, donations
}

func (c Config) mode(category string) string {
	var m string
	switch category {
	case audit.CategoryAuth:
		m = c.Auth
	case audit.CategoryAdmin:
		m = c.Admin
	case audit.CategoryContent:
		m = c.Content
	}
	if m == "" {
		return ModeAll
	}
	return m
}

// Logger writes audit events. Methods on a nil *Logger do nothing.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// Log sends event wherever its category is configured to go. A failed
// database write is logged and otherwise ignored.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	mode := l.config.mode(event.Category)
	if mode == ModeAll || mode == ModeLog {
		l.toZap(event)
	}
	if (mode == ModeAll || mode == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("audit event not stored", zap.String("event_type", event.EventType), zap.Error(err))
		}
	}
}

func (l *Logger) toZap(e audit.Event) {
	fields := make([]zap.Field, 0, 6+len(e.Details))
	fields = append(fields,
		zap.Bool("audit", true),
		zap.String("category", e.Category),
		zap.String("event_type", e.EventType),
		zap.String("ip", e.IP))
	if e.UserID != nil {
		fields = append(fields, zap.String("user_id", e.UserID.Hex()))
	}
	if e.ActorID != nil {
		fields = append(fields, zap.String("actor_id", e.ActorID.Hex()))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	if e.Success {
		l.zapLog.Info("audit event", fields...)
		return
	}
	l.zapLog.Warn("audit event", append(fields, zap.String("failure_reason", e.FailureReason))...)
}

// event starts a successful event of eventType from r.
func event(r *http.Request, category, eventType string) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        network.GetClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	}
}

func failed(r *http.Request, eventType, reason string) audit.Event {
	e := event(r, audit.CategoryAuth, eventType)
	e.Success = false
	e.FailureReason = reason
	return e
}

// idOf parses a hex id taken from the session; junk becomes nil.
func idOf(hex string) *primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &oid
}

// Sign-in events.

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, method, email string) {
	e := event(r, audit.CategoryAuth, audit.EventLoginSuccess)
	e.UserID = &userID
	e.Details = map[string]string{"method": method, "email": email}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	e := failed(r, audit.EventLoginFailedUserNotFound, "user not found")
	e.Details = map[string]string{"attempted_email": attemptedEmail}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := failed(r, audit.EventLoginFailedWrongPassword, "wrong password")
	e.UserID = &userID
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := failed(r, audit.EventLoginFailedUserDisabled, "user disabled")
	e.UserID = &userID
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginLockedOut records a sign-in refused before the password was checked.
func (l *Logger) LoginLockedOut(ctx context.Context, r *http.Request, email string) {
	e := failed(r, audit.EventLoginLockedOut, "too many failed attempts")
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDHex string) {
	e := event(r, audit.CategoryAuth, audit.EventLogout)
	e.UserID = idOf(userIDHex)
	l.Log(ctx, e)
}

// PasswordChanged records actor setting userID's password; they are the
// same person when an admin changes their own.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID, actorHex string) {
	e := event(r, audit.CategoryAuth, audit.EventPasswordChanged)
	e.UserID = &userID
	e.ActorID = idOf(actorHex)
	l.Log(ctx, e)
}

// Admin user events.

func (l *Logger) adminEvent(ctx context.Context, r *http.Request, eventType, actorHex string, userID primitive.ObjectID, details map[string]string) {
	e := event(r, audit.CategoryAdmin, eventType)
	e.UserID = &userID
	e.ActorID = idOf(actorHex)
	e.Details = details
	l.Log(ctx, e)
}

func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorHex string, userID primitive.ObjectID, email, role string) {
	l.adminEvent(ctx, r, audit.EventUserCreated, actorHex, userID, map[string]string{"email": email, "role": role})
}

// UserUpdated records an edit; fields names what changed.
func (l *Logger) UserUpdated(ctx context.Context, r *http.Request, actorHex string, userID primitive.ObjectID, fields string) {
	l.adminEvent(ctx, r, audit.EventUserUpdated, actorHex, userID, map[string]string{"fields": fields})
}

func (l *Logger) UserStatusChanged(ctx context.Context, r *http.Request, actorHex string, userID primitive.ObjectID, disabled bool) {
	eventType := audit.EventUserEnabled
	if disabled {
		eventType = audit.EventUserDisabled
	}
	l.adminEvent(ctx, r, eventType, actorHex, userID, nil)
}

func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorHex string, userID primitive.ObjectID, email string) {
	l.adminEvent(ctx, r, audit.EventUserDeleted, actorHex, userID, map[string]string{"email": email})
}

// Content events. Visitors have no actor.

func (l *Logger) contentEvent(ctx context.Context, r *http.Request, eventType, actorHex string, details map[string]string) {
	e := event(r, audit.CategoryContent, eventType)
	e.ActorID = idOf(actorHex)
	e.Details = details
	l.Log(ctx, e)
}

// ContentChanged records a create, update or delete of docID in collection.
func (l *Logger) ContentChanged(ctx context.Context, r *http.Request, actorHex, eventType, collection, docID string) {
	l.contentEvent(ctx, r, eventType, actorHex, map[string]string{"collection": collection, "id": docID})
}

// SingletonSaved records a settings save; created marks the first one.
func (l *Logger) SingletonSaved(ctx context.Context, r *http.Request, actorHex, slug string, created bool) {
	l.contentEvent(ctx, r, audit.EventSingletonSaved, actorHex, map[string]string{"slug": slug, "created": strconv.FormatBool(created)})
}

func (l *Logger) ImageAssigned(ctx context.Context, r *http.Request, actorHex, section, category, sourceID string) {
	l.contentEvent(ctx, r, audit.EventImageAssigned, actorHex, map[string]string{"section": section, "category": category, "source_id": sourceID})
}

func (l *Logger) AssignmentRemoved(ctx context.Context, r *http.Request, actorHex, section, id string) {
	l.contentEvent(ctx, r, audit.EventAssignmentRemoved, actorHex, map[string]string{"section": section, "id": id})
}

func (l *Logger) TestimonialSubmitted(ctx context.Context, r *http.Request, id primitive.ObjectID, photoKind string) {
	l.contentEvent(ctx, r, audit.EventTestimonialSubmitted, "", map[string]string{"id": id.Hex(), "photo_kind": photoKind})
}

func (l *Logger) TestimonialApproved(ctx context.Context, r *http.Request, actorHex string, id primitive.ObjectID) {
	l.contentEvent(ctx, r, audit.EventTestimonialApproved, actorHex, map[string]string{"id": id.Hex()})
}

// DonationRecorded records a payment the gateway confirmed. amount is in
// the currency's smallest unit.
func (l *Logger) DonationRecorded(ctx context.Context, r *http.Request, paymentID string, amount int64, currency string) {
	l.contentEvent(ctx, r, audit.EventDonationRecorded, "", map[string]string{
		"payment_id": paymentID,
		"amount":     strconv.FormatInt(amount, 10),
		"currency":   currency,
	})
}
