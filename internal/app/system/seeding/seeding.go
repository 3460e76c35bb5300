// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"
	"errors"

	adminuserstore "github.com/dalemusser/gicesite/internal/app/store/adminusers"
	"github.com/dalemusser/gicesite/internal/app/system/authutil"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// AdminSeed is the first administrator, taken from configuration.
type AdminSeed struct {
	Email    string
	Name     string
	Password string
}

// SeedAll seeds the first admin user if none exists yet. Content
// collections and singletons are never seeded: they are created on first
// save from the dashboard.
func SeedAll(ctx context.Context, db *mongo.Database, seed AdminSeed, logger *zap.Logger) error {
	return seedAdmin(ctx, adminuserstore.New(db, logger), seed, logger)
}

func seedAdmin(ctx context.Context, store *adminuserstore.Store, seed AdminSeed, logger *zap.Logger) error {
	if seed.Email == "" {
		return nil
	}

	n, err := store.CountActiveAdmins(ctx)
	if err != nil {
		logger.Error("failed to count admins", zap.Error(err))
		return err
	}
	if n > 0 {
		return nil
	}

	if seed.Password == "" {
		logger.Warn("no active admin and no seed_admin_password set; dashboard is unreachable",
			zap.String("email", seed.Email))
		return nil
	}

	cred, err := authutil.ResolveCredential(authutil.CredentialInput{
		Email:    seed.Email,
		Password: seed.Password,
	})
	if err != nil {
		return err
	}

	name := seed.Name
	if name == "" {
		name = "Administrator"
	}

	u, err := store.Create(ctx, adminuserstore.CreateInput{
		Name:         name,
		Email:        cred.Email,
		Role:         models.RoleAdmin,
		PasswordHash: *cred.PasswordHash,
	})
	if errors.Is(err, adminuserstore.ErrDuplicateEmail) {
		// A disabled admin with this email exists; leave it alone.
		logger.Warn("seed admin email belongs to a disabled user", zap.String("email", cred.Email))
		return nil
	}
	if err != nil {
		logger.Error("failed to seed admin", zap.String("email", cred.Email), zap.Error(err))
		return err
	}

	logger.Info("seeded admin user", zap.String("email", u.Email), zap.String("id", u.ID.Hex()))
	return nil
}
