// internal/app/store/adminusers/adminuserstore.go
package adminuserstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/gicesite/internal/app/system/normalize"
	"github.com/dalemusser/gicesite/internal/app/system/status"
	"github.com/dalemusser/gicesite/internal/app/system/txn"
	"github.com/dalemusser/gicesite/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names.
const (
	UsersCollection       = "adminUsers"
	CredentialsCollection = "credentials"
)

var (
	// ErrDuplicateEmail is returned when an email is already taken by another admin.
	ErrDuplicateEmail = errors.New("an admin user with this email already exists")
	errBadRole        = errors.New("invalid role")
	errBadStatus      = errors.New(`status must be "active"|"disabled"`)
	errNoPassword     = errors.New("password hash is required")
)

// Store manages admin profiles and their credentials. The two always share
// an _id; they are created and deleted together.
type Store struct {
	db    *mongo.Database
	users *mongo.Collection
	creds *mongo.Collection
	log   *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:    db,
		users: db.Collection(UsersCollection),
		creds: db.Collection(CredentialsCollection),
		log:   log,
	}
}

// CreateInput holds the fields for a new admin user.
type CreateInput struct {
	Name         string
	Email        string
	Phone        string
	Role         string
	ImageURL     string
	PasswordHash string
}

// Create provisions a credential and a profile under one new ID. Runs in a
// transaction when the deployment supports it; otherwise the credential is
// removed again if the profile insert fails.
func (s *Store) Create(ctx context.Context, in CreateInput) (models.AdminUser, error) {
	role := normalize.Role(in.Role)
	if !models.IsValidRole(role) {
		return models.AdminUser{}, errBadRole
	}
	if in.PasswordHash == "" {
		return models.AdminUser{}, errNoPassword
	}

	now := time.Now().UTC()
	id := primitive.NewObjectID()
	name := normalize.Name(in.Name)
	email := normalize.Email(in.Email)

	u := models.AdminUser{
		ID:        id,
		Name:      name,
		NameCI:    text.Fold(name),
		Email:     email,
		Phone:     normalize.Phone(in.Phone),
		Role:      role,
		Status:    status.Active,
		ImageURL:  in.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred := models.Credential{
		ID:           id,
		Email:        email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if _, err := s.creds.InsertOne(ctx, cred); err != nil {
			return err
		}
		if _, err := s.users.InsertOne(ctx, u); err != nil {
			// Outside a transaction nothing rolls the credential back.
			if !txn.Active(ctx) {
				_, _ = s.creds.DeleteOne(ctx, bson.M{"_id": id})
			}
			return err
		}
		return nil
	})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.AdminUser{}, ErrDuplicateEmail
		}
		return models.AdminUser{}, err
	}
	return u, nil
}

// GetByID loads a profile by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.AdminUser, error) {
	var u models.AdminUser
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a profile by email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var u models.AdminUser
	if err := s.users.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetCredential looks up the credential for an email.
func (s *Store) GetCredential(ctx context.Context, email string) (*models.Credential, error) {
	var c models.Credential
	if err := s.creds.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all profiles sorted by name.
func (s *Store) List(ctx context.Context) ([]models.AdminUser, error) {
	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.AdminUser
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Names maps each id to the profile name. Ids with no profile are left out.
func (s *Store) Names(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.AdminUser
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u.Name
	}
	return out, cur.Err()
}

// UpdateInput holds the optional fields for an edit.
// Nil means "don't update this field".
type UpdateInput struct {
	Name         *string
	Email        *string
	Phone        *string
	Role         *string
	Status       *string
	ImageURL     *string
	PasswordHash *string
}

// Update applies a partial edit. Email and password changes are mirrored to
// the credential.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) error {
	now := time.Now().UTC()
	set := bson.M{"updated_at": now}
	credSet := bson.M{}

	if in.Name != nil {
		name := normalize.Name(*in.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if in.Email != nil {
		email := normalize.Email(*in.Email)
		set["email"] = email
		credSet["email"] = email
	}
	if in.Phone != nil {
		set["phone"] = normalize.Phone(*in.Phone)
	}
	if in.Role != nil {
		role := normalize.Role(*in.Role)
		if !models.IsValidRole(role) {
			return errBadRole
		}
		set["role"] = role
	}
	if in.Status != nil {
		st := normalize.Status(*in.Status)
		if !status.IsValid(st) {
			return errBadStatus
		}
		set["status"] = st
	}
	if in.ImageURL != nil {
		set["image_url"] = *in.ImageURL
	}
	if in.PasswordHash != nil {
		credSet["password_hash"] = *in.PasswordHash
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return mongo.ErrNoDocuments
		}
		if len(credSet) > 0 {
			credSet["updated_at"] = now
			if _, err := s.creds.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": credSet}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && wafflemongo.IsDup(err) {
		return ErrDuplicateEmail
	}
	return err
}

// Delete removes the profile and its credential.
// Returns the number of profiles deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	var deleted int64
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		_, err = s.creds.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
	return deleted, err
}

// CountActiveAdmins returns the number of active profiles with role=admin.
func (s *Store) CountActiveAdmins(ctx context.Context) (int64, error) {
	return s.users.CountDocuments(ctx, bson.M{"role": models.RoleAdmin, "status": status.Active})
}

// Count returns the total number of admin users.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.users.CountDocuments(ctx, bson.M{})
}
