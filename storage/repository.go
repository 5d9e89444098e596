// Package storage provides the credential store abstraction used by the
// authentication core.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNotFound is returned when no user matches the lookup key.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by Create when the email key is taken.
	ErrDuplicateEmail = errors.New("email already registered")
)

// User is a persisted account record.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRepository defines the keyed queries the authentication core needs
// from a user record store.
type UserRepository interface {
	// GetByEmail looks a user up by email, compared on EmailKey.
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	// Create inserts the user and assigns user.ID. It fails with
	// ErrDuplicateEmail if the email key already exists, atomically with
	// the insert.
	Create(ctx context.Context, user *User) error
	UpdateName(ctx context.Context, id int64, name string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// NormalizeEmail trims surrounding whitespace and applies Unicode NFC so that
// visually identical addresses are stored identically.
func NormalizeEmail(email string) string {
	return norm.NFC.String(strings.TrimSpace(email))
}

// EmailKey returns the case-insensitive uniqueness key for an email.
func EmailKey(email string) string {
	return strings.ToLower(NormalizeEmail(email))
}
