// Package auth verifies credentials and manages the login session
// lifecycle.
package auth

import (
	"strings"

	"github.com/stockroom/stockroom/internal/rbac"
)

// Account is the credential view of a user row.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	FullName     string
	Role         rbac.Role
}

// Principal projects the account into the session principal.
func (a Account) Principal() rbac.Principal {
	return rbac.Principal{ID: a.ID, Username: a.Username, FullName: a.FullName, Role: a.Role}
}

// Credentials is the login payload, accepted as form fields or JSON.
type Credentials struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

// Normalize trims the username. Passwords are compared verbatim.
func (c Credentials) Normalize() Credentials {
	c.Username = strings.TrimSpace(c.Username)
	return c
}
