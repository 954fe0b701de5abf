// Package models contains the persisted entities of the DocVault server.
package models

import "time"

// Known role values. Role comparison is case-sensitive everywhere; the role
// stored in the database is authoritative, not the role claim inside a token.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a credential record. Username is unique and immutable after
// creation; PasswordHash is a bcrypt hash and may be empty for accounts that
// were created without a password (login stays impossible until an admin
// resets it).
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserInfo is the public projection of a user returned by listing endpoints.
type UserInfo struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
