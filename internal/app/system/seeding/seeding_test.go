package seeding

import (
	"testing"

	adminuserstore "github.com/dalemusser/gicesite/internal/app/store/adminusers"
	"github.com/dalemusser/gicesite/internal/app/system/authutil"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/gicesite/internal/testutil"
	"go.uber.org/zap"
)

func TestSeedAll_CreatesFirstAdminOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	seed := AdminSeed{Email: "Founder@Example.org", Name: "Founder", Password: "correct-horse-1"}

	for i := 0; i < 2; i++ {
		if err := SeedAll(ctx, db, seed, zap.NewNop()); err != nil {
			t.Fatalf("SeedAll() run %d error = %v", i+1, err)
		}
	}

	store := adminuserstore.New(db, zap.NewNop())
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("Count() = %d, want 1", n)
	}

	u, err := store.GetByEmail(ctx, "founder@example.org")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Errorf("Role = %q, want admin", u.Role)
	}

	cred, err := store.GetCredential(ctx, "founder@example.org")
	if err != nil {
		t.Fatalf("GetCredential() error = %v", err)
	}
	if cred.ID != u.ID {
		t.Errorf("credential ID %s != profile ID %s", cred.ID.Hex(), u.ID.Hex())
	}
	if !authutil.CheckPassword("correct-horse-1", cred.PasswordHash) {
		t.Error("seeded password does not verify")
	}
}

func TestSeedAll_NoEmailIsNoop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := SeedAll(ctx, db, AdminSeed{}, zap.NewNop()); err != nil {
		t.Fatalf("SeedAll() error = %v", err)
	}
	n, _ := adminuserstore.New(db, zap.NewNop()).Count(ctx)
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}
