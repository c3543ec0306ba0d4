package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockroom/stockroom/internal/rbac"
	"github.com/stockroom/stockroom/internal/shared"
)

const findQuery = `SELECT id, username, password_hash, full_name, role FROM users WHERE username = $1`

func newMockRepo(t *testing.T) (*PGRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestFindByUsername(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(findQuery)).WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "password_hash", "full_name", "role"}).
			AddRow(int64(4), "alice", "$2a$hash", "Alice", "Manager"))

	acct, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(4), acct.ID)
	assert.Equal(t, rbac.RoleManager, acct.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUsernameMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(findQuery)).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSessionAuditRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	expires := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_sessions`)).
		WithArgs("sid", int64(4), pgxmock.AnyArg(), expires, "10.0.0.1", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM user_sessions WHERE id = $1`)).
		WithArgs("sid").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.CreateSession(context.Background(), "sid", 4, expires, "10.0.0.1", ""))
	require.NoError(t, repo.DeleteSession(context.Background(), "sid"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserSessionsReturnsIDs(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM user_sessions WHERE user_id = $1 RETURNING id`)).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("s1").AddRow("s2"))

	ids, err := repo.DeleteUserSessions(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
