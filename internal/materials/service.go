package materials

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/stockroom/stockroom/internal/shared"
)

// Service wraps material business rules.
type Service struct {
	repo      Repository
	validator *validator.Validate
	now       func() time.Time
	location  *time.Location
}

// NewService constructs a new Service. Stamps use the calendar day in loc.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, validator: shared.NewValidator(), now: time.Now, location: loc}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() Date {
	return NewDate(s.now().In(s.location))
}

// List returns every material, newest created first.
func (s *Service) List(ctx context.Context) ([]Material, error) {
	return s.repo.List(ctx)
}

// Get returns one material.
func (s *Service) Get(ctx context.Context, id int64) (Material, error) {
	if id <= 0 {
		return Material{}, fmt.Errorf("material id must be positive: %w", shared.ErrInvalidArgument)
	}
	return s.repo.Get(ctx, id)
}

// Create stores a new material stamped with the acting user and today.
func (s *Service) Create(ctx context.Context, fields Fields, actingUsername string) (Material, error) {
	fields = fields.Normalize()
	if err := shared.ValidateStruct(s.validator, fields); err != nil {
		return Material{}, err
	}
	return s.repo.Create(ctx, Material{
		Fields:      fields,
		UpdatedBy:   actingUsername,
		LastUpdated: s.today(),
	})
}

// Update overwrites all fields of material id and restamps it.
func (s *Service) Update(ctx context.Context, id int64, fields Fields, actingUsername string) error {
	if id <= 0 {
		return fmt.Errorf("material id must be positive: %w", shared.ErrInvalidArgument)
	}
	fields = fields.Normalize()
	if err := shared.ValidateStruct(s.validator, fields); err != nil {
		return err
	}
	return s.repo.Update(ctx, Material{
		ID:          id,
		Fields:      fields,
		UpdatedBy:   actingUsername,
		LastUpdated: s.today(),
	})
}

// Delete removes one material; missing ids are ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("material id must be positive: %w", shared.ErrInvalidArgument)
	}
	return s.repo.Delete(ctx, id)
}

// DeleteMany removes the listed materials. The list must be non-empty and
// hold positive ids only; ids that do not exist are skipped.
func (s *Service) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("ids must not be empty: %w", shared.ErrInvalidArgument)
	}
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return 0, fmt.Errorf("ids must be positive: %w", shared.ErrInvalidArgument)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return s.repo.DeleteMany(ctx, unique)
}

// Summary loads the overall totals and the per-supplier breakdown.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var summary Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.repo.Totals(gctx)
		if err != nil {
			return err
		}
		summary.Totals = totals
		return nil
	})
	g.Go(func() error {
		suppliers, err := s.repo.SupplierTotals(gctx)
		if err != nil {
			return err
		}
		summary.Suppliers = suppliers
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}
