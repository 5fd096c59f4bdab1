// Package models - user.go defines the User model for organization members.
package models

import "time"

// Roles. The registering user becomes the organization admin.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a user account
type User struct {
	ID             string
	Email          string
	FirstName      string
	LastName       string
	HashedPassword string
	Role           string
	OrganizationID string
	IsActive       bool
	CreatedAt      time.Time
	LastLogin      *time.Time
}

// FullName joins first and last name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
