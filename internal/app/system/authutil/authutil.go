// internal/app/system/authutil/authutil.go
// Package authutil validates and hashes the sign-in fields of admin user forms.
package authutil

import (
	"errors"

	"github.com/dalemusser/gicesite/internal/app/system/inputval"
	"github.com/dalemusser/gicesite/internal/app/system/normalize"
)

// CredentialInput holds the raw form values for the credential fields.
type CredentialInput struct {
	Email    string
	Password string
	IsEdit   bool // If true, password is optional (leave blank to keep existing)
}

// CredentialResult holds the validated fields ready for storage.
type CredentialResult struct {
	Email        string  // normalized
	PasswordHash *string // bcrypt hash, nil when the password is unchanged
}

// Common validation errors
var (
	ErrEmailRequired    = errors.New("Email is required.")
	ErrInvalidEmail     = errors.New("Please enter a valid email address.")
	ErrPasswordRequired = errors.New("A password is required for new admin users.")
)

// ResolveCredential validates the input and hashes the password if one was given.
func ResolveCredential(in CredentialInput) (*CredentialResult, error) {
	email := normalize.Email(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !inputval.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	res := &CredentialResult{Email: email}

	if in.Password == "" {
		if !in.IsEdit {
			return nil, ErrPasswordRequired
		}
		return res, nil
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	res.PasswordHash = &hash
	return res, nil
}
