package materials

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stockroom/stockroom/internal/platform/db"
	"github.com/stockroom/stockroom/internal/shared"
)

// Repository persists materials.
type Repository interface {
	List(ctx context.Context) ([]Material, error)
	Get(ctx context.Context, id int64) (Material, error)
	Create(ctx context.Context, m Material) (Material, error)
	Update(ctx context.Context, m Material) error
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
	Totals(ctx context.Context) (Totals, error)
	SupplierTotals(ctx context.Context) ([]SupplierTotal, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const selectColumns = `SELECT id, packet_no, part_name, length, width, height, quantity, supplier, updated_by, last_updated, created_at FROM materials`

func scanMaterial(row pgx.Row) (Material, error) {
	var m Material
	err := row.Scan(&m.ID, &m.PacketNo, &m.PartName, &m.Length, &m.Width, &m.Height, &m.Quantity, &m.Supplier, &m.UpdatedBy, &m.LastUpdated.Time, &m.CreatedAt)
	return m, err
}

// List returns all materials, newest first.
func (r *PGRepository) List(ctx context.Context) ([]Material, error) {
	rows, err := r.db.Query(ctx, selectColumns+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	materials := make([]Material, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return materials, nil
}

// Get fetches a material by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (Material, error) {
	m, err := scanMaterial(r.db.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Material{}, fmt.Errorf("material %d: %w", id, shared.ErrNotFound)
		}
		return Material{}, db.Classify(err)
	}
	return m, nil
}

// Create inserts m and returns it with the generated id.
func (r *PGRepository) Create(ctx context.Context, m Material) (Material, error) {
	const q = `INSERT INTO materials (packet_no, part_name, length, width, height, quantity, supplier, updated_by, last_updated) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, m.PacketNo, m.PartName, m.Length, m.Width, m.Height, m.Quantity, m.Supplier, m.UpdatedBy, m.LastUpdated.Time).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Material{}, db.Classify(err)
	}
	return m, nil
}

// Update overwrites every mutable column of m.ID.
func (r *PGRepository) Update(ctx context.Context, m Material) error {
	const q = `UPDATE materials SET packet_no = $1, part_name = $2, length = $3, width = $4, height = $5, quantity = $6, supplier = $7, updated_by = $8, last_updated = $9 WHERE id = $10`
	tag, err := r.db.Exec(ctx, q, m.PacketNo, m.PartName, m.Length, m.Width, m.Height, m.Quantity, m.Supplier, m.UpdatedBy, m.LastUpdated.Time, m.ID)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("material %d: %w", m.ID, shared.ErrNotFound)
	}
	return nil
}

// Delete removes one material.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("material %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// DeleteMany removes every listed material that exists and reports how
// many rows went away.
func (r *PGRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM materials WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, db.Classify(err)
	}
	return tag.RowsAffected(), nil
}

// Totals counts items and sums quantities.
func (r *PGRepository) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(quantity), 0) FROM materials`).Scan(&t.Items, &t.Quantity)
	if err != nil {
		return Totals{}, db.Classify(err)
	}
	return t, nil
}

// SupplierTotals groups items and quantities by supplier name.
func (r *PGRepository) SupplierTotals(ctx context.Context) ([]SupplierTotal, error) {
	rows, err := r.db.Query(ctx, `SELECT supplier, COUNT(*), COALESCE(SUM(quantity), 0) FROM materials GROUP BY supplier ORDER BY supplier`)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	totals := make([]SupplierTotal, 0)
	for rows.Next() {
		var st SupplierTotal
		if err := rows.Scan(&st.Supplier, &st.Items, &st.Quantity); err != nil {
			return nil, err
		}
		totals = append(totals, st)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return totals, nil
}

var _ Repository = (*PGRepository)(nil)
