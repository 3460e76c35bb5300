package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/gicesite/internal/testutil"
)

func TestFail_LocksAfterMax(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db, 3, 15*time.Minute, 10*time.Minute)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 1; i <= 2; i++ {
		if _, locked, err := s.Fail(ctx, "Asha@Example.org"); err != nil || locked {
			t.Fatalf("failure %d: locked = %v, err = %v", i, locked, err)
		}
	}
	until, locked, err := s.Fail(ctx, "asha@example.org")
	if err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	if !locked {
		t.Fatal("third failure should lock")
	}
	if d := time.Until(until); d < 9*time.Minute || d > 11*time.Minute {
		t.Errorf("locked for %v, want about 10m", d)
	}

	if _, locked := s.Locked(ctx, "ASHA@example.org"); !locked {
		t.Error("Locked() = false, want true")
	}
	if _, locked := s.Locked(ctx, "ravi@example.org"); locked {
		t.Error("an unrelated email is locked")
	}
}

func TestFail_WindowRestarts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db, 2, time.Minute, time.Hour)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now()
	s.now = func() time.Time { return base }
	if _, _, err := s.Fail(ctx, "a@example.org"); err != nil {
		t.Fatal(err)
	}

	// The next failure lands after the window, so the count starts over.
	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, locked, err := s.Fail(ctx, "a@example.org"); err != nil || locked {
		t.Errorf("locked = %v, err = %v; want a fresh window", locked, err)
	}
}

func TestFail_ConcurrentFailuresAllCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db, 100, time.Hour, time.Hour)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Create the record first so the parallel upserts do not race on insert.
	if _, _, err := s.Fail(ctx, "a@example.org"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.Fail(ctx, "a@example.org")
		}()
	}
	wg.Wait()

	var rec Record
	if err := s.c.FindOne(ctx, map[string]string{"email": "a@example.org"}).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.Count != 11 {
		t.Errorf("Count = %d, want 11", rec.Count)
	}
}

func TestClear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db, 1, time.Hour, time.Hour)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, locked, _ := s.Fail(ctx, "a@example.org"); !locked {
		t.Fatal("expected a lockout with max=1")
	}
	if err := s.Clear(ctx, "a@example.org"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, locked := s.Locked(ctx, "a@example.org"); locked {
		t.Error("still locked after Clear")
	}
}
