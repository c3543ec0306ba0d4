// Package rbac implements the rank based permission policy shared by the
// page and JSON routes.
package rbac

import (
	"encoding/json"
	"fmt"

	"github.com/stockroom/stockroom/internal/shared"
)

// Role is a closed set of ranks ordered by authorization scope.
type Role int

const (
	// RoleEmployee is the lowest rank and the fallback for unknown values.
	RoleEmployee Role = iota + 1
	// RoleManager manages employees.
	RoleManager
	// RoleAdmin manages everyone.
	RoleAdmin
)

// AllRoles lists ranks from lowest to highest.
func AllRoles() []Role {
	return []Role{RoleEmployee, RoleManager, RoleAdmin}
}

// String returns the canonical name stored in the database.
func (r Role) String() string {
	switch r {
	case RoleManager:
		return "manager"
	case RoleAdmin:
		return "admin"
	default:
		return "employee"
	}
}

// Valid reports whether r is one of the known ranks.
func (r Role) Valid() bool {
	return r >= RoleEmployee && r <= RoleAdmin
}

// MarshalJSON renders the canonical name.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts any known synonym.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("role must be a string: %w", shared.ErrInvalidArgument)
	}
	role, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Subject is the minimal view of a user the predicates operate on.
type Subject struct {
	ID   int64
	Role Role
}

// Principal describes the authenticated actor attached to a session.
type Principal struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Role     Role   `json:"role"`
}

// Subject projects the principal for policy checks.
func (p Principal) Subject() Subject {
	return Subject{ID: p.ID, Role: p.Role}
}

// Identity converts the principal into its session representation.
func (p Principal) Identity() shared.Identity {
	return shared.Identity{
		UserID:   p.ID,
		Username: p.Username,
		FullName: p.FullName,
		Role:     p.Role.String(),
	}
}

// PrincipalFromIdentity rebuilds a principal from session storage.
func PrincipalFromIdentity(identity shared.Identity) Principal {
	return Principal{
		ID:       identity.UserID,
		Username: identity.Username,
		FullName: identity.FullName,
		Role:     RoleOrLowest(identity.Role),
	}
}
