package oauthstate

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/gicesite/internal/testutil"
)

func TestIssueAndRedeem(t *testing.T) {
	s := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, err := s.Issue(ctx, "/admin/c/news")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	b, err := s.Issue(ctx, "")
	if err != nil {
		t.Fatalf("second Issue() error = %v", err)
	}
	if a == b || len(a) != 43 {
		t.Errorf("states %q and %q should be distinct 43-char tokens", a, b)
	}

	ret, err := s.Redeem(ctx, a)
	if err != nil || ret != "/admin/c/news" {
		t.Fatalf("Redeem() = %q, %v; want /admin/c/news", ret, err)
	}
	if _, err := s.Redeem(ctx, a); !errors.Is(err, ErrInvalid) {
		t.Errorf("replayed Redeem() error = %v, want ErrInvalid", err)
	}
}

func TestRedeem_UnknownAndEmpty(t *testing.T) {
	s := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, state := range []string{"", "never-issued"} {
		if _, err := s.Redeem(ctx, state); !errors.Is(err, ErrInvalid) {
			t.Errorf("Redeem(%q) error = %v, want ErrInvalid", state, err)
		}
	}
}

func TestExpiry(t *testing.T) {
	s := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	issued := time.Now()
	s.now = func() time.Time { return issued }
	stale, err := s.Issue(ctx, "/admin")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	fresh, err := s.Issue(ctx, "/admin")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	s.now = func() time.Time { return issued.Add(TTL + time.Second) }
	if _, err := s.Redeem(ctx, stale); !errors.Is(err, ErrInvalid) {
		t.Errorf("expired Redeem() error = %v, want ErrInvalid", err)
	}
	n, err := s.Cleanup(ctx)
	if err != nil || n != 2 {
		t.Errorf("Cleanup() = %d, %v; want 2", n, err)
	}

	s.now = time.Now
	if _, err := s.Redeem(ctx, fresh); !errors.Is(err, ErrInvalid) {
		t.Error("cleaned up state still redeemable")
	}
}
