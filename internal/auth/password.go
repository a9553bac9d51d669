// ABOUTME: Shared-password authenticator for single-tenant deployments
// ABOUTME: Compares against a bcrypt hash with constant-timing dummy comparison

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrWrongPassword is returned when the presented password does not match.
var ErrWrongPassword = errors.New("wrong password")

// dummyHash is compared against when no real hash is available, to keep
// response timing flat.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// PasswordAuthenticator validates the shared application password.
type PasswordAuthenticator struct {
	hash []byte
}

// NewPasswordAuthenticator builds an authenticator from config. A bcrypt
// hash is used directly; a plaintext password is hashed once at startup.
// At least one must be set (enforced by config validation).
func NewPasswordAuthenticator(password, passwordBcrypt string) (*PasswordAuthenticator, error) {
	if passwordBcrypt != "" {
		// Reject malformed hashes at startup instead of at first login
		if _, err := bcrypt.Cost([]byte(passwordBcrypt)); err != nil {
			return nil, fmt.Errorf("invalid password_bcrypt: %w", err)
		}
		return &PasswordAuthenticator{hash: []byte(passwordBcrypt)}, nil
	}
	if password == "" {
		return nil, errors.New("no password configured")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return &PasswordAuthenticator{hash: hash}, nil
}

// Authenticate checks the presented password. A mismatch yields
// ErrWrongPassword; the caller creates no session.
func (a *PasswordAuthenticator) Authenticate(password string) error {
	hash := a.hash
	if len(hash) == 0 {
		hash = []byte(dummyHash)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrWrongPassword
	}
	if len(a.hash) == 0 {
		return ErrWrongPassword
	}
	return nil
}
