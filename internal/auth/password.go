// Package auth provides password hashing and JWT session tokens.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 10
	minPasswordLength = 8
)

// ErrWeakPassword is returned when a password fails the length policy.
var ErrWeakPassword = fmt.Errorf("password must be at least %d characters", minPasswordLength)

// HashPassword hashes a password with bcrypt. Input beyond 72 bytes is
// truncated first, since bcrypt silently ignores the remainder anyway.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrWeakPassword
	}
	if len(password) > 72 {
		password = password[:72]
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the stored hash.
func CheckPassword(hash, password string) bool {
	if len(password) > 72 {
		password = password[:72]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
