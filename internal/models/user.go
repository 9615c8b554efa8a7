// Package models defines data structures for Cryptofolio
package models

import "time"

// User represents a registered account.
type User struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicView strips credential material for API responses.
func (u *User) PublicView() map[string]interface{} {
	return map[string]interface{}{
		"username":   u.Username,
		"email":      u.Email,
		"created_at": u.CreatedAt,
	}
}
