package audit

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/gicesite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func logAll(t *testing.T, ctx context.Context, s *Store, events ...Event) {
	t.Helper()
	for _, e := range events {
		if err := s.Log(ctx, e); err != nil {
			t.Fatalf("Log(%s) error = %v", e.EventType, err)
		}
	}
}

func TestLog_StampsIDAndTime(t *testing.T) {
	s := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logAll(t, ctx, s, Event{Category: CategoryContent, EventType: EventContentCreated, Details: map[string]string{"collection": "services"}})

	got, err := s.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Recent() = %d events, want 1", len(got))
	}
	if got[0].ID.IsZero() || got[0].CreatedAt.IsZero() {
		t.Errorf("event not stamped: %+v", got[0])
	}
	if got[0].Details["collection"] != "services" {
		t.Errorf("Details = %v", got[0].Details)
	}
}

func TestFind_FiltersAndOrder(t *testing.T) {
	s := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	meera := primitive.NewObjectID()
	logAll(t, ctx, s,
		Event{CreatedAt: base, Category: CategoryAuth, EventType: EventLoginSuccess, UserID: &meera, Success: true},
		Event{CreatedAt: base.Add(time.Minute), Category: CategoryContent, EventType: EventContentUpdated},
		Event{CreatedAt: base.Add(2 * time.Minute), Category: CategoryAuth, EventType: EventLogout, UserID: &meera, Success: true},
		Event{CreatedAt: base.Add(3 * time.Minute), Category: CategoryAdmin, EventType: EventUserCreated},
	)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all, newest first", Filter{}, []string{EventUserCreated, EventLogout, EventContentUpdated, EventLoginSuccess}},
		{"category", Filter{Category: CategoryAuth}, []string{EventLogout, EventLoginSuccess}},
		{"event type", Filter{EventType: EventContentUpdated}, []string{EventContentUpdated}},
		{"user", Filter{UserID: meera}, []string{EventLogout, EventLoginSuccess}},
		{"window", Filter{Since: base.Add(30 * time.Second), Until: base.Add(150 * time.Second)}, []string{EventLogout, EventContentUpdated}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Find(ctx, tt.filter, 0, 10)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Find() = %d events, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.EventType != tt.want[i] {
					t.Errorf("event %d = %s, want %s", i, e.EventType, tt.want[i])
				}
			}

			n, err := s.Count(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != int64(len(tt.want)) {
				t.Errorf("Count() = %d, want %d", n, len(tt.want))
			}
		})
	}
}

func TestFind_Pages(t *testing.T) {
	s := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		logAll(t, ctx, s, Event{CreatedAt: base.Add(time.Duration(i) * time.Minute), Category: CategoryContent, EventType: EventContentCreated})
	}

	first, err := s.Find(ctx, Filter{}, 0, 2)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	third, err := s.Find(ctx, Filter{}, 4, 2)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(first) != 2 || len(third) != 1 {
		t.Fatalf("pages = %d and %d events, want 2 and 1", len(first), len(third))
	}
	if !first[0].CreatedAt.After(third[0].CreatedAt) {
		t.Error("first page should hold the newest events")
	}
}

func TestForUser(t *testing.T) {
	s := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ravi, actor := primitive.NewObjectID(), primitive.NewObjectID()
	logAll(t, ctx, s,
		Event{Category: CategoryAdmin, EventType: EventUserDisabled, UserID: &ravi, ActorID: &actor, Success: true},
		Event{Category: CategoryAdmin, EventType: EventUserCreated, UserID: &actor, Success: true},
	)

	got, err := s.ForUser(ctx, ravi, 10)
	if err != nil {
		t.Fatalf("ForUser() error = %v", err)
	}
	if len(got) != 1 || got[0].EventType != EventUserDisabled {
		t.Fatalf("ForUser() = %+v", got)
	}
	if got[0].ActorID == nil || *got[0].ActorID != actor {
		t.Errorf("ActorID = %v, want %v", got[0].ActorID, actor)
	}
}

func TestCountFailedSignIns(t *testing.T) {
	s := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	logAll(t, ctx, s,
		Event{CreatedAt: now.Add(-time.Hour), Category: CategoryAuth, EventType: EventLoginFailedWrongPassword},
		Event{CreatedAt: now.Add(-time.Hour), Category: CategoryAuth, EventType: EventLoginFailedUserNotFound},
		Event{CreatedAt: now.Add(-time.Hour), Category: CategoryAuth, EventType: EventLoginLockedOut},
		Event{CreatedAt: now.Add(-time.Hour), Category: CategoryAuth, EventType: EventLoginSuccess, Success: true},
		Event{CreatedAt: now.Add(-48 * time.Hour), Category: CategoryAuth, EventType: EventLoginFailedWrongPassword},
	)

	n, err := s.CountFailedSignIns(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CountFailedSignIns() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountFailedSignIns() = %d, want 3", n)
	}
}
