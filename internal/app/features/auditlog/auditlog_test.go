package auditlog

import (
	"net/http"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	adminuserstore "github.com/dalemusser/gicesite/internal/app/store/adminusers"
	"github.com/dalemusser/gicesite/internal/app/store/audit"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/gicesite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T) (*Handler, *mongo.Database) {
	t.Helper()
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	return NewHandler(db, errorsfeature.NewErrorLogger(logger), logger), db
}

func get(h *Handler, target string) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	Routes(h).ServeHTTP(rec, testutil.NewAuthenticatedRequestWithCSRF(http.MethodGet, target, testutil.AdminUser()))
	return rec
}

func seedEvents(t *testing.T, db *mongo.Database) primitive.ObjectID {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := adminuserstore.New(db, zap.NewNop()).Create(ctx, adminuserstore.CreateInput{
		Name:         "Meera",
		Email:        "meera@example.org",
		Role:         models.RoleAdmin,
		PasswordHash: "unused",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	store := audit.New(db)
	events := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, UserID: &u.ID, Success: true,
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{Category: audit.CategoryContent, EventType: audit.EventContentCreated, ActorID: &u.ID, Success: true,
			Details: map[string]string{"collection": "services"}, CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginFailedUserNotFound, Success: false,
			CreatedAt: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}
	return u.ID
}

func TestList_ResolvesActors(t *testing.T) {
	h, db := newHandler(t)
	seedEvents(t, db)

	rec := get(h, "/")
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Showing 1 to 3 of 3")
	rec.AssertContains(t, "<td>Meera</td>")
	rec.AssertContains(t, "collection=services")
}

func TestList_Filters(t *testing.T) {
	h, db := newHandler(t)
	seedEvents(t, db)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"category", "/?category=content", "Showing 1 to 1 of 1"},
		{"event type", "/?event_type=login_failed_user_not_found", "Showing 1 to 1 of 1"},
		{"date range", "/?start_date=2026-03-01&end_date=2026-03-02&tz=UTC", "Showing 1 to 2 of 2"},
		{"nothing", "/?category=admin", "No events match."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(h, tt.target)
			rec.AssertStatus(t, http.StatusOK)
			rec.AssertContains(t, tt.want)
		})
	}
}

func TestList_Paging(t *testing.T) {
	h, db := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	for i := 0; i < pageSize+5; i++ {
		if err := store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLogout, Success: true}); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	rec := get(h, "/")
	rec.AssertContains(t, "Showing 1 to 50 of 55")
	rec.AssertContains(t, "page=2")

	rec = get(h, "/?page=2")
	rec.AssertContains(t, "Showing 51 to 55 of 55")
	if strings.Contains(rec.Body.String(), "page=3") {
		t.Error("last page should not link further")
	}
}

func TestEventTypes(t *testing.T) {
	if got := eventTypes(audit.CategoryAdmin); len(got) != 5 {
		t.Errorf("eventTypes(admin) = %v", got)
	}
	all := eventTypes("")
	want := len(eventsByCategory[audit.CategoryAuth]) + len(eventsByCategory[audit.CategoryAdmin]) + len(eventsByCategory[audit.CategoryContent])
	if len(all) != want {
		t.Errorf("eventTypes(\"\") = %d types, want %d", len(all), want)
	}
	if eventTypes("bogus") != nil {
		t.Error("unknown category should list nothing")
	}
}

func TestActorName(t *testing.T) {
	id := primitive.NewObjectID()
	names := map[primitive.ObjectID]string{id: "Meera"}

	if got := actorName(audit.Event{Category: audit.CategoryAuth, UserID: &id}, names); got != "Meera" {
		t.Errorf("auth event actor = %q", got)
	}
	if got := actorName(audit.Event{Category: audit.CategoryAdmin, UserID: &id}, names); got != "" {
		t.Errorf("admin event without actor = %q, want empty", got)
	}
	gone := primitive.NewObjectID()
	if got := actorName(audit.Event{ActorID: &gone}, names); got != "" {
		t.Errorf("deleted actor = %q, want empty", got)
	}
}
