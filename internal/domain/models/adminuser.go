// internal/domain/models/adminuser.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminUser is a staff profile with dashboard access. Its ID is shared with
// the Credential created alongside it, so the two records always pair up.
type AdminUser struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	NameCI   string             `bson:"name_ci" json:"-"`
	Email    string             `bson:"email" json:"email"` // lowercase
	Phone    string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role     string             `bson:"role" json:"role"`     // admin, editor
	Status   string             `bson:"status" json:"status"` // active, disabled
	ImageURL string             `bson:"image_url,omitempty" json:"image_url,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Credential is the sign-in secret for an AdminUser.
type Credential struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Admin roles.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// AllRoles returns all valid admin roles.
func AllRoles() []string {
	return []string{RoleAdmin, RoleEditor}
}

// IsValidRole checks if a role string is valid.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}
