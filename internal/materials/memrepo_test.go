package materials

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stockroom/stockroom/internal/shared"
)

// memRepo is an in-memory Repository for service and handler tests.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]Material
	err    error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[int64]Material)}
}

func (r *memRepo) List(ctx context.Context) ([]Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]Material, 0, len(r.rows))
	for _, m := range r.rows {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memRepo) Get(ctx context.Context, id int64) (Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Material{}, r.err
	}
	m, ok := r.rows[id]
	if !ok {
		return Material{}, fmt.Errorf("material %d: %w", id, shared.ErrNotFound)
	}
	return m, nil
}

func (r *memRepo) Create(ctx context.Context, m Material) (Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Material{}, r.err
	}
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = time.Now()
	r.rows[m.ID] = m
	return m, nil
}

func (r *memRepo) Update(ctx context.Context, m Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	prev, ok := r.rows[m.ID]
	if !ok {
		return fmt.Errorf("material %d: %w", m.ID, shared.ErrNotFound)
	}
	m.CreatedAt = prev.CreatedAt
	r.rows[m.ID] = m
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.rows[id]; !ok {
		return fmt.Errorf("material %d: %w", id, shared.ErrNotFound)
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	var n int64
	for _, id := range ids {
		if _, ok := r.rows[id]; ok {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *memRepo) Totals(ctx context.Context) (Totals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Totals{}, r.err
	}
	var t Totals
	for _, m := range r.rows {
		t.Items++
		t.Quantity += int64(m.Quantity)
	}
	return t, nil
}

func (r *memRepo) SupplierTotals(ctx context.Context) ([]SupplierTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	bySupplier := map[string]*SupplierTotal{}
	for _, m := range r.rows {
		st, ok := bySupplier[m.Supplier]
		if !ok {
			st = &SupplierTotal{Supplier: m.Supplier}
			bySupplier[m.Supplier] = st
		}
		st.Items++
		st.Quantity += int64(m.Quantity)
	}
	out := make([]SupplierTotal, 0, len(bySupplier))
	for _, st := range bySupplier {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Supplier < out[j].Supplier })
	return out, nil
}
