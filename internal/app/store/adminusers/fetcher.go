// internal/app/store/adminusers/fetcher.go
package adminuserstore

import (
	"context"

	"github.com/dalemusser/gicesite/internal/app/system/auth"
	"github.com/dalemusser/gicesite/internal/app/system/normalize"
	"github.com/dalemusser/gicesite/internal/app/system/status"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Fetcher implements auth.UserFetcher so role changes and disabled accounts
// take effect on the next request.
type Fetcher struct {
	users  *mongo.Collection
	logger *zap.Logger
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		users:  db.Collection(UsersCollection),
		logger: logger,
	}
}

// FetchUser returns nil if the admin is missing, disabled, or the lookup fails.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.AdminUser
	proj := options.FindOne().SetProjection(bson.M{
		"_id":    1,
		"name":   1,
		"email":  1,
		"role":   1,
		"status": 1,
	})
	if err := f.users.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&u); err != nil {
		if err != mongo.ErrNoDocuments && f.logger != nil {
			f.logger.Warn("admin user lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}

	if normalize.Status(u.Status) == status.Disabled {
		return nil
	}

	return &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.Name,
		Email: u.Email,
		Role:  normalize.Role(u.Role),
	}
}
