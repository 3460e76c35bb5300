package authutil

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes, so longer passwords are refused
	// rather than silently truncated.
	MaxPasswordLength = 72
	BcryptCost        = bcrypt.DefaultCost
)

var (
	ErrPasswordTooShort = errors.New("Password must be at least 6 characters.")
	ErrPasswordTooLong  = errors.New("Password must be at most 72 bytes.")
	ErrPasswordCommon   = errors.New("This password is too easy to guess. Please choose another.")
)

// guessable is matched case-insensitively.
var guessable = map[string]struct{}{}

func init() {
	for _, p := range strings.Fields(`
		123456 1234567 12345678 123456789 1234567890 111111 000000 123123 654321
		password password1 passw0rd qwerty qwerty123 abc123 abcdef letmein welcome
		iloveyou monkey dragon sunshine princess football master login
		admin admin123 administrator changeme secret
		gice gice123 gicesite donate donation`) {
		guessable[p] = struct{}{}
	}
}

// PasswordRules is the hint shown next to password fields.
func PasswordRules() string {
	return "Use at least 6 characters. Common passwords such as \"123456\" or \"password\" are not accepted."
}

func ValidatePassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	if _, ok := guessable[strings.ToLower(password)]; ok {
		return ErrPasswordCommon
	}
	return nil
}

// HashPassword bcrypts a password already checked by ValidatePassword.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(b), err
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
