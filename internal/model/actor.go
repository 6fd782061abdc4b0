package model

import "time"

// UserID identifies an authenticated account
type UserID string

// Role is the privilege level of an account
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RolePlayer    Role = "player"
)

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RolePlayer:
		return true
	default:
		return false
	}
}

// Actor is the identity on whose behalf an operation runs
type Actor struct {
	UserID UserID
	Role   Role
	Origin string // network origin, e.g. client IP
}

// IsAdmin returns true for admin actors
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Account is a login identity with a role
type Account struct {
	ID           UserID
	Username     string // login username (immutable)
	DisplayName  string
	Role         Role
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}
