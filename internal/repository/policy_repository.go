package repository

import (
	"context"
	"fmt"

	"github.com/goatkit/warrantyflow/internal/keylock"
	"github.com/goatkit/warrantyflow/internal/models"
)

// PolicyRepository stores warranty policies keyed by product id.
type PolicyRepository struct {
	store DocumentStore
	guard documentGuard
}

// NewPolicyRepository creates a policy repository over store.
func NewPolicyRepository(store DocumentStore, locker keylock.Locker) *PolicyRepository {
	return &PolicyRepository{store: store, guard: newDocumentGuard(locker)}
}

func (r *PolicyRepository) load(ctx context.Context) (models.PolicySet, error) {
	set := models.PolicySet{}
	if _, err := r.store.Load(ctx, DocPolicies, &set); err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	if set == nil {
		set = models.PolicySet{}
	}
	return set, nil
}

// Get returns the policy for productID or ErrNotFound.
func (r *PolicyRepository) Get(ctx context.Context, productID string) (*models.WarrantyPolicy, error) {
	set, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := set[productID]
	if !ok {
		return nil, fmt.Errorf("%w: policy for product %s", models.ErrNotFound, productID)
	}
	return &p, nil
}

// List returns all policies.
func (r *PolicyRepository) List(ctx context.Context) (models.PolicySet, error) {
	return r.load(ctx)
}

// Put inserts or replaces the policy for productID.
func (r *PolicyRepository) Put(ctx context.Context, productID string, policy models.WarrantyPolicy) error {
	return r.Update(ctx, func(set models.PolicySet) (bool, error) {
		set[productID] = policy
		return true, nil
	})
}

// Delete removes the policy for productID and reports whether it existed.
func (r *PolicyRepository) Delete(ctx context.Context, productID string) (bool, error) {
	var existed bool
	err := r.Update(ctx, func(set models.PolicySet) (bool, error) {
		_, existed = set[productID]
		delete(set, productID)
		return existed, nil
	})
	return existed, err
}

// Update runs fn over the full policy set and saves it when fn reports a change.
// Updates hold the policies document lock.
func (r *PolicyRepository) Update(ctx context.Context, fn func(models.PolicySet) (bool, error)) error {
	return r.guard.update(ctx, DocPolicies, func() error {
		set, err := r.load(ctx)
		if err != nil {
			return err
		}
		changed, err := fn(set)
		if err != nil || !changed {
			return err
		}
		if err := r.store.Save(ctx, DocPolicies, set); err != nil {
			return fmt.Errorf("failed to save policies: %w", err)
		}
		return nil
	})
}
