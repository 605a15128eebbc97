package repository

import (
	"context"
	"fmt"

	"github.com/goatkit/warrantyflow/internal/keylock"
	"github.com/goatkit/warrantyflow/internal/models"
)

// ExclusionRepository stores the product ids that catalog sync must skip.
// The document is a plain JSON list of ids.
type ExclusionRepository struct {
	store DocumentStore
	guard documentGuard
}

// NewExclusionRepository creates an exclusion repository over store.
func NewExclusionRepository(store DocumentStore, locker keylock.Locker) *ExclusionRepository {
	return &ExclusionRepository{store: store, guard: newDocumentGuard(locker)}
}

// List returns the exclusion set.
func (r *ExclusionRepository) List(ctx context.Context) (models.ExclusionSet, error) {
	var ids []string
	if _, err := r.store.Load(ctx, DocExclusions, &ids); err != nil {
		return nil, fmt.Errorf("failed to load exclusions: %w", err)
	}
	return models.NewExclusionSet(ids...), nil
}

// Contains reports whether productID is excluded.
func (r *ExclusionRepository) Contains(ctx context.Context, productID string) (bool, error) {
	set, err := r.List(ctx)
	if err != nil {
		return false, err
	}
	return set.Contains(productID), nil
}

// Add excludes productID. It reports false when it was already excluded.
func (r *ExclusionRepository) Add(ctx context.Context, productID string) (bool, error) {
	var added bool
	err := r.guard.update(ctx, DocExclusions, func() error {
		set, err := r.List(ctx)
		if err != nil {
			return err
		}
		if set.Contains(productID) {
			return nil
		}
		set[productID] = struct{}{}
		if err := r.store.Save(ctx, DocExclusions, set.IDs()); err != nil {
			return fmt.Errorf("failed to save exclusions: %w", err)
		}
		added = true
		return nil
	})
	return added, err
}
