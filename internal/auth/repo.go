package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stockroom/stockroom/internal/platform/db"
	"github.com/stockroom/stockroom/internal/rbac"
	"github.com/stockroom/stockroom/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (Account, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID int64) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

// FindByUsername fetches credentials by exact username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (Account, error) {
	var (
		acct Account
		role string
	)
	err := r.db.QueryRow(ctx, `SELECT id, username, password_hash, full_name, role FROM users WHERE username = $1`, username).
		Scan(&acct.ID, &acct.Username, &acct.PasswordHash, &acct.FullName, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, db.Classify(err)
	}
	acct.Role = rbac.RoleOrLowest(role)
	return acct, nil
}

// CreateSession records an issued login for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	const q = `INSERT INTO user_sessions (id, user_id, created_at, expires_at, ip, ua) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))`
	_, err := r.db.Exec(ctx, q, id, userID, time.Now().UTC(), expiresAt.UTC(), ip, ua)
	return db.Classify(err)
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
	return db.Classify(err)
}

// DeleteUserSessions removes every session record of userID and returns
// the removed session ids.
func (r *PGRepository) DeleteUserSessions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `DELETE FROM user_sessions WHERE user_id = $1 RETURNING id`, userID)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return ids, nil
}

var _ Repository = (*PGRepository)(nil)
