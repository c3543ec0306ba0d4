package materials

import (
	"context"
	"errors"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockroom/stockroom/internal/shared"
)

var materialColumns = []string{"id", "packet_no", "part_name", "length", "width", "height", "quantity", "supplier", "updated_by", "last_updated", "created_at"}

func newMockRepo(t *testing.T) (*PGRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestPGRepositoryList(t *testing.T) {
	repo, mock := newMockRepo(t)
	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	created := day.Add(9 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(selectColumns + ` ORDER BY created_at DESC, id DESC`)).
		WillReturnRows(pgxmock.NewRows(materialColumns).
			AddRow(int64(2), 7, "Nut", 1, 1, 1, 100, "Acme", "alice", day, created).
			AddRow(int64(1), 3, "Bolt", 2, 2, 2, 50, "Bosch", "bob", day, created))

	items, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].ID)
	assert.Equal(t, "Nut", items[0].PartName)
	assert.Equal(t, "07/03/2024", items[0].LastUpdated.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepositoryGetMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectColumns + ` WHERE id = $1`)).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), 9)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepositoryCreateReturnsID(t *testing.T) {
	repo, mock := newMockRepo(t)
	day := NewDate(time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC))
	created := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO materials`).
		WithArgs(1, "Gear", 2, 3, 4, 5, "Acme", "alice", day.Time).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(41), created))

	m, err := repo.Create(context.Background(), Material{
		Fields:      Fields{PacketNo: 1, PartName: "Gear", Length: 2, Width: 3, Height: 4, Quantity: 5, Supplier: "Acme"},
		UpdatedBy:   "alice",
		LastUpdated: day,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(41), m.ID)
	assert.Equal(t, created, m.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepositoryUpdateMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE materials SET`).
		WithArgs(0, "Gear", 0, 0, 0, 0, "", "alice", pgxmock.AnyArg(), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), Material{ID: 5, Fields: Fields{PartName: "Gear"}, UpdatedBy: "alice"})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepositoryDeleteMany(t *testing.T) {
	repo, mock := newMockRepo(t)
	ids := []int64{1, 2, 3}
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM materials WHERE id = ANY($1)`)).
		WithArgs(ids).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := repo.DeleteMany(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepositoryDeleteMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM materials WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), 3)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPGRepositoryTotalsUnavailable(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnError(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})

	_, err := repo.Totals(context.Background())
	require.ErrorIs(t, err, shared.ErrUnavailable)
}

func TestPGRepositorySupplierTotals(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`GROUP BY supplier`).
		WillReturnRows(pgxmock.NewRows([]string{"supplier", "count", "sum"}).
			AddRow("Acme", int64(2), int64(12)).
			AddRow("Bosch", int64(1), int64(3)))

	totals, err := repo.SupplierTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []SupplierTotal{{"Acme", 2, 12}, {"Bosch", 1, 3}}, totals)
}

func TestPGRepositoryPassesThroughOtherErrors(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("syntax error")
	mock.ExpectExec(`DELETE FROM materials`).WithArgs(int64(1)).WillReturnError(boom)

	err := repo.Delete(context.Background(), 1)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, shared.ErrUnavailable)
}
