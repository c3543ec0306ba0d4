package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockroom/stockroom/internal/rbac"
	"github.com/stockroom/stockroom/internal/shared"
)

// SessionRevoker ends the live sessions of a user.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID int64) error
}

// Service applies the rank rules on top of the Repository.
type Service struct {
	repo      Repository
	validator *validator.Validate
	hashCost  int
	sessions  SessionRevoker
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: shared.NewValidator(), hashCost: bcrypt.DefaultCost}
}

// WithSessionRevoker makes deletes and role changes end the target's
// sessions.
func (s *Service) WithSessionRevoker(r SessionRevoker) *Service {
	s.sessions = r
	return s
}

func (s *Service) revoke(ctx context.Context, userID int64) error {
	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		return fmt.Errorf("users: end sessions of %d: %w", userID, err)
	}
	return nil
}

// WithHashCost overrides the bcrypt cost.
func (s *Service) WithHashCost(cost int) *Service {
	s.hashCost = cost
	return s
}

func forbidden(action string) error {
	return fmt.Errorf("%s: %w", action, shared.ErrForbidden)
}

// List returns every user. Managers and admins only.
func (s *Service) List(ctx context.Context, actor rbac.Subject) ([]User, error) {
	if !rbac.HasElevatedAccess(actor) {
		return nil, forbidden("list users")
	}
	return s.repo.List(ctx)
}

// Get returns one user. Anyone may read their own record.
func (s *Service) Get(ctx context.Context, actor rbac.Subject, id int64) (User, error) {
	if actor.ID != id && !rbac.HasElevatedAccess(actor) {
		return User{}, forbidden("view user")
	}
	return s.repo.Get(ctx, id)
}

// Create adds a user with a role the actor may assign.
func (s *Service) Create(ctx context.Context, actor rbac.Subject, req CreateRequest) (User, error) {
	if !rbac.HasElevatedAccess(actor) {
		return User{}, forbidden("create user")
	}
	req = req.Normalize()
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return User{}, err
	}
	if !rbac.CanAssign(actor, req.Role) {
		return User{}, forbidden("assign role " + req.Role.String())
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return User{}, err
	}
	u, err := s.repo.Create(ctx, User{
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         req.Role,
		Phone:        req.Phone,
	})
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}

// Update overwrites user id. The role may only change to one the actor
// may assign.
func (s *Service) Update(ctx context.Context, actor rbac.Subject, id int64, req UpdateRequest) error {
	req = req.Normalize()
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return err
	}
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !rbac.CanEdit(actor, target.Subject()) {
		return forbidden("edit user")
	}
	if req.Role != target.Role && !rbac.CanAssign(actor, req.Role) {
		return forbidden("assign role " + req.Role.String())
	}
	updated := User{
		ID:       id,
		Username: req.Username,
		FullName: req.FullName,
		Role:     req.Role,
		Phone:    req.Phone,
	}
	if req.Password != nil {
		if updated.PasswordHash, err = s.hash(*req.Password); err != nil {
			return err
		}
	}
	if err := s.repo.Update(ctx, updated); err != nil {
		return err
	}
	if updated.Role != target.Role {
		return s.revoke(ctx, id)
	}
	return nil
}

// Delete removes user id. Nobody may delete themself.
func (s *Service) Delete(ctx context.Context, actor rbac.Subject, id int64) error {
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !rbac.CanDelete(actor, target.Subject()) {
		return forbidden("delete user")
	}
	// session records cascade with the user row
	if err := s.revoke(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Roles lists the ranks the actor may assign.
func (s *Service) Roles(actor rbac.Subject) []rbac.Role {
	return rbac.AvailableRoles(actor)
}

func (s *Service) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("password must be at most 72 bytes: %w", shared.ErrInvalidArgument)
	}
	if err != nil {
		return "", fmt.Errorf("users: hash password: %w", err)
	}
	return string(hashed), nil
}
