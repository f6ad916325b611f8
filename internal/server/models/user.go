// Package models holds the persistence-level entities of the portal.
package models

import (
	"strings"
	"time"
)

// User is one registered account. PasswordHash is always a bcrypt digest,
// never the plaintext, and is left empty on projections that exclude it.
type User struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	IsVerified   bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the projection of a User that is safe to hand to clients.
type PublicUser struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	IsVerified bool       `json:"is_verified"`
	LastLogin  *time.Time `json:"last_login"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Public drops the password hash and splits the display name.
func (u *User) Public() PublicUser {
	first, last := SplitName(u.Name)
	return PublicUser{
		ID:         u.ID,
		Name:       u.Name,
		FirstName:  first,
		LastName:   last,
		Email:      u.Email,
		Phone:      u.Phone,
		IsVerified: u.IsVerified,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
	}
}

// SplitName splits a display name on its first run of whitespace.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// JoinName builds a display name from first and last parts.
func JoinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
