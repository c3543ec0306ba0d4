package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/stockroom/stockroom/internal/rbac"
	"github.com/stockroom/stockroom/internal/shared"
)

// dummyHash is compared against when the username is unknown so both
// failure paths spend one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("stockroom-dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
})

// SessionStore deletes live sessions by id.
type SessionStore interface {
	Revoke(ctx context.Context, ids ...string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions SessionStore
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// WithSessionStore sets the store RevokeUser ends sessions in.
func (s *Service) WithSessionStore(store SessionStore) *Service {
	s.sessions = store
	return s
}

// Authenticate validates username/password credentials. Unknown users and
// wrong passwords both yield shared.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (rbac.Principal, error) {
	acct, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, shared.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return rbac.Principal{}, shared.ErrInvalidCredentials
	}
	if err != nil {
		return rbac.Principal{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return rbac.Principal{}, shared.ErrInvalidCredentials
	}
	return acct.Principal(), nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// RevokeUser ends every recorded session of userID.
func (s *Service) RevokeUser(ctx context.Context, userID int64) error {
	ids, err := s.repo.DeleteUserSessions(ctx, userID)
	if err != nil {
		return err
	}
	if s.sessions == nil || len(ids) == 0 {
		return nil
	}
	return s.sessions.Revoke(ctx, ids...)
}
