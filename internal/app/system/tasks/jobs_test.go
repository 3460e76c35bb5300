package tasks_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/gicesite/internal/app/store/oauthstate"
	testimonialstore "github.com/dalemusser/gicesite/internal/app/store/testimonials"
	"github.com/dalemusser/gicesite/internal/app/system/mailer"
	"github.com/dalemusser/gicesite/internal/app/system/tasks"
	"github.com/dalemusser/gicesite/internal/app/system/throttle"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/gicesite/internal/testutil"
	"go.uber.org/zap"
)

type captureSender struct {
	sent []mailer.Email
}

func (c *captureSender) Send(e mailer.Email) error {
	c.sent = append(c.sent, e)
	return nil
}

func TestPendingDigestJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := testimonialstore.New(db)
	sender := &captureSender{}
	job := tasks.PendingDigestJob(store, sender, tasks.DigestConfig{
		To:        "staff@example.org",
		AppName:   "GICE",
		ReviewURL: "https://example.org/admin/testimonials",
	}, zap.NewNop())

	if !job.Deferred {
		t.Error("digest job should not run at startup")
	}

	// Empty queue sends nothing.
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("sent %d emails for empty queue, want 0", len(sender.sent))
	}

	if _, err := store.Create(ctx, models.Testimonial{Name: "Asha", Body: "Great school", Rating: 5, Pending: true}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, models.Testimonial{Name: "Staff pick", Body: "Approved", Rating: 4}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	got := sender.sent[0]
	if got.To != "staff@example.org" {
		t.Errorf("To = %q", got.To)
	}
	if !strings.Contains(got.TextBody, "Asha") || strings.Contains(got.TextBody, "Staff pick") {
		t.Errorf("TextBody lists wrong testimonials: %q", got.TextBody)
	}
}

func TestOAuthStateCleanupJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	job := tasks.OAuthStateCleanupJob(oauthstate.New(db), zap.NewNop())
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestThrottleSweepJob(t *testing.T) {
	l := throttle.New(60, 1)
	l.Allow("203.0.113.1")

	job := tasks.ThrottleSweepJob(l, 0, zap.NewNop())
	time.Sleep(5 * time.Millisecond)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d after sweep, want 0", l.Len())
	}
}
