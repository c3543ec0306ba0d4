package materials

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockroom/stockroom/internal/shared"
)

var fixedNow = time.Date(2024, time.March, 7, 23, 30, 0, 0, time.UTC)

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	svc := NewService(repo, time.UTC).WithClock(func() time.Time { return fixedNow })
	return svc, repo
}

func sampleFields() Fields {
	return Fields{PacketNo: 12, PartName: "  Bolt M8 ", Length: 30, Width: 8, Height: 8, Quantity: 250, Supplier: "Acme "}
}

func TestCreateThenGetMatches(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, sampleFields(), "alice")
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, "Bolt M8", created.PartName)
	assert.Equal(t, "Acme", created.Supplier)
	assert.Equal(t, "alice", created.UpdatedBy)
	assert.Equal(t, "07/03/2024", created.LastUpdated.String())

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Fields, got.Fields)
	assert.Equal(t, created.UpdatedBy, got.UpdatedBy)
	assert.Equal(t, created.LastUpdated, got.LastUpdated)
}

func TestCreateStampsCalendarDayInLocation(t *testing.T) {
	loc := time.FixedZone("ICT", 7*60*60)
	svc := NewService(newMemRepo(), loc).WithClock(func() time.Time { return fixedNow })

	created, err := svc.Create(context.Background(), sampleFields(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "08/03/2024", created.LastUpdated.String())
}

func TestCreateRejectsInvalidFields(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.Create(context.Background(), Fields{PartName: "   ", Quantity: -1}, "alice")
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "partName is required")
	assert.Contains(t, err.Error(), "quantity")
	assert.Empty(t, repo.rows)
}

func TestNumbersMustFitIntegerColumns(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, Fields{PartName: "bolt", Quantity: 3_000_000_000}, "alice")
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "quantity must be at most 2147483647")
	assert.Empty(t, repo.rows)

	created, err := svc.Create(ctx, Fields{PartName: "bolt", Quantity: 2147483647}, "alice")
	require.NoError(t, err)

	err = svc.Update(ctx, created.ID, Fields{PartName: "bolt", PacketNo: 1 << 31, Length: 1 << 40}, "alice")
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "packetNo must be at most")
	assert.Contains(t, err.Error(), "length must be at most")
}

func TestUpdateRestampsAndReportsMissing(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, sampleFields(), "alice")
	require.NoError(t, err)

	svc.WithClock(func() time.Time { return fixedNow.Add(48 * time.Hour) })
	fields := sampleFields()
	fields.Quantity = 10
	require.NoError(t, svc.Update(ctx, created.ID, fields, "bob"))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Quantity)
	assert.Equal(t, "bob", got.UpdatedBy)
	assert.Equal(t, "09/03/2024", got.LastUpdated.String())

	err = svc.Update(ctx, 999, fields, "bob")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	err := svc.Delete(context.Background(), 42)
	require.ErrorIs(t, err, shared.ErrNotFound)

	err = svc.Delete(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestDeleteManyRules(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.DeleteMany(ctx, []int64{})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	_, err = svc.DeleteMany(ctx, nil)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	_, err = svc.DeleteMany(ctx, []int64{1, -3})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	a, err := svc.Create(ctx, sampleFields(), "alice")
	require.NoError(t, err)
	b, err := svc.Create(ctx, sampleFields(), "alice")
	require.NoError(t, err)
	c, err := svc.Create(ctx, sampleFields(), "alice")
	require.NoError(t, err)

	removed, err := svc.DeleteMany(ctx, []int64{a.ID, b.ID, b.ID, 777})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Len(t, repo.rows, 1)
	_, ok := repo.rows[c.ID]
	assert.True(t, ok)
}

func TestSummaryAggregatesBySupplier(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, f := range []Fields{
		{PartName: "Nut", Quantity: 5, Supplier: "Acme"},
		{PartName: "Bolt", Quantity: 7, Supplier: "Acme"},
		{PartName: "Washer", Quantity: 3, Supplier: "Bosch"},
	} {
		_, err := svc.Create(ctx, f, "alice")
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{Items: 3, Quantity: 15}, summary.Totals)
	assert.Equal(t, []SupplierTotal{
		{Supplier: "Acme", Items: 2, Quantity: 12},
		{Supplier: "Bosch", Items: 1, Quantity: 3},
	}, summary.Suppliers)
}

func TestSummaryPropagatesUnavailable(t *testing.T) {
	svc, repo := newTestService()
	repo.err = shared.ErrUnavailable

	_, err := svc.Summary(context.Background())
	require.ErrorIs(t, err, shared.ErrUnavailable)
}
