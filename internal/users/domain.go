// Package users manages staff accounts and enforces the rank rules for
// who may see, create, edit and remove them.
package users

import (
	"fmt"
	"strings"
	"time"

	"github.com/stockroom/stockroom/internal/rbac"
	"github.com/stockroom/stockroom/internal/shared"
)

// ErrUsernameTaken is returned when the unique username constraint fails.
var ErrUsernameTaken = fmt.Errorf("username already taken: %w", shared.ErrInvalidArgument)

// User is a stored account. The password hash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Role         rbac.Role `json:"role"`
	Phone        *string   `json:"phone"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Subject projects the user for policy checks.
func (u User) Subject() rbac.Subject {
	return rbac.Subject{ID: u.ID, Role: u.Role}
}

// CreateRequest is the payload for adding a user.
type CreateRequest struct {
	Username string    `json:"username" validate:"required,max=64"`
	Password string    `json:"password" validate:"required,max=72"`
	FullName string    `json:"fullName" validate:"required,max=255"`
	Role     rbac.Role `json:"role" validate:"required"`
	Phone    *string   `json:"phone" validate:"omitempty,max=32"`
}

// Normalize trims text fields and drops a blank phone.
func (r CreateRequest) Normalize() CreateRequest {
	r.Username = strings.TrimSpace(r.Username)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Phone = normalizePhone(r.Phone)
	return r
}

// UpdateRequest overwrites every field of a user. A nil or empty
// Password leaves the stored hash untouched.
type UpdateRequest struct {
	Username string    `json:"username" validate:"required,max=64"`
	Password *string   `json:"password" validate:"omitempty,max=72"`
	FullName string    `json:"fullName" validate:"required,max=255"`
	Role     rbac.Role `json:"role" validate:"required"`
	Phone    *string   `json:"phone" validate:"omitempty,max=32"`
}

// Normalize trims text fields and drops a blank phone.
func (r UpdateRequest) Normalize() UpdateRequest {
	r.Username = strings.TrimSpace(r.Username)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Phone = normalizePhone(r.Phone)
	if r.Password != nil && *r.Password == "" {
		r.Password = nil
	}
	return r
}

func normalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*phone)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
