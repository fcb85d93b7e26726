// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account. Email is the login identifier;
// email and username are unique regardless of case. PasswordHash is never
// serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
