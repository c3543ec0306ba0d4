package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stockroom/stockroom/internal/platform/db"
	"github.com/stockroom/stockroom/internal/rbac"
	"github.com/stockroom/stockroom/internal/shared"
)

// Repository persists users. It does not apply rank rules.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) error
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const selectUser = `SELECT id, username, password_hash, full_name, role, phone, created_at FROM users`

func scanUser(row pgx.Row) (User, error) {
	var (
		u    User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &role, &u.Phone, &u.CreatedAt); err != nil {
		return User{}, err
	}
	u.Role = rbac.RoleOrLowest(role)
	return u, nil
}

// List returns users ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, selectUser+` ORDER BY id`)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return users, nil
}

// Get fetches a user by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
		}
		return User{}, db.Classify(err)
	}
	return u, nil
}

// Create inserts u. A duplicate username yields ErrUsernameTaken.
func (r *PGRepository) Create(ctx context.Context, u User) (User, error) {
	const q = `INSERT INTO users (username, password_hash, full_name, role, phone) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, u.Username, u.PasswordHash, u.FullName, u.Role.String(), u.Phone).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, db.Classify(err)
	}
	return u, nil
}

// Update overwrites u.ID. An empty PasswordHash keeps the stored one.
func (r *PGRepository) Update(ctx context.Context, u User) error {
	const q = `UPDATE users SET username = $1, password_hash = COALESCE(NULLIF($2, ''), password_hash), full_name = $3, role = $4, phone = $5 WHERE id = $6`
	tag, err := r.db.Exec(ctx, q, u.Username, u.PasswordHash, u.FullName, u.Role.String(), u.Phone, u.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", u.ID, shared.ErrNotFound)
	}
	return nil
}

// Delete removes a user. Their session audit rows cascade.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
