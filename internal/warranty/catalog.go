package warranty

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goatkit/warrantyflow/internal/keylock"
	"github.com/goatkit/warrantyflow/internal/models"
)

// PolicyStoreKey is the lock key guarding policy and exclusion mutations.
const PolicyStoreKey = "policy-store"

// PolicyStore is the read-modify-write view of stored policies.
type PolicyStore interface {
	PolicyLookup
	List(ctx context.Context) (models.PolicySet, error)
	Put(ctx context.Context, productID string, policy models.WarrantyPolicy) error
	Delete(ctx context.Context, productID string) (bool, error)
	Update(ctx context.Context, fn func(models.PolicySet) (bool, error)) error
}

// ExclusionStore holds products barred from automatic registration.
type ExclusionStore interface {
	List(ctx context.Context) (models.ExclusionSet, error)
	Add(ctx context.Context, productID string) (bool, error)
}

// Catalog merges fetched products into the policy store.
type Catalog struct {
	policies   PolicyStore
	exclusions ExclusionStore
	locker     keylock.Locker
}

// NewCatalog wires a catalog synchronizer.
func NewCatalog(policies PolicyStore, exclusions ExclusionStore, locker keylock.Locker) *Catalog {
	return &Catalog{policies: policies, exclusions: exclusions, locker: locker}
}

// Sync inserts a policy for every product that is not excluded, not yet stored and
// whose title carries a duration. Existing entries are never overwritten.
func (c *Catalog) Sync(ctx context.Context, products []models.Product) (int, error) {
	unlock, err := c.locker.Lock(ctx, PolicyStoreKey)
	if err != nil {
		return 0, err
	}
	defer unlock()

	excluded, err := c.exclusions.List(ctx)
	if err != nil {
		return 0, err
	}

	inserted := 0
	err = c.policies.Update(ctx, func(set models.PolicySet) (bool, error) {
		for _, p := range products {
			if p.ID == "" || excluded.Contains(p.ID) {
				continue
			}
			if _, ok := set[p.ID]; ok {
				continue
			}
			d, ok := ParseTitle(p.Title)
			if !ok {
				continue
			}
			set[p.ID] = models.WarrantyPolicy{Title: p.Title, Duration: d}
			inserted++
		}
		return inserted > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Exclude removes any stored policy for productID and bars it from future syncs.
// It reports whether a policy was removed; unknown ids are still excluded.
func (c *Catalog) Exclude(ctx context.Context, productID string) (bool, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return false, fmt.Errorf("%w: product id is required", models.ErrInvalidInput)
	}
	unlock, err := c.locker.Lock(ctx, PolicyStoreKey)
	if err != nil {
		return false, err
	}
	defer unlock()

	// Exclusion first: a failure after this point can only leave a stale policy,
	// never a product that a later sync would re-register.
	if _, err := c.exclusions.Add(ctx, productID); err != nil {
		return false, err
	}
	return c.policies.Delete(ctx, productID)
}

// SetPolicy stores an operator-chosen duration for productID, replacing any
// existing entry. The stored title is kept when present.
func (c *Catalog) SetPolicy(ctx context.Context, productID string, duration models.Duration) (*models.WarrantyPolicy, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", models.ErrInvalidInput)
	}
	if !duration.Valid() {
		return nil, fmt.Errorf("%w: invalid duration %s", models.ErrInvalidInput, duration)
	}
	unlock, err := c.locker.Lock(ctx, PolicyStoreKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var policy models.WarrantyPolicy
	err = c.policies.Update(ctx, func(set models.PolicySet) (bool, error) {
		title := "Product " + productID
		if existing, ok := set[productID]; ok && existing.Title != "" {
			title = existing.Title
		}
		policy = models.WarrantyPolicy{Title: title, Duration: duration}
		set[productID] = policy
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// Policies returns every stored policy.
func (c *Catalog) Policies(ctx context.Context) (models.PolicySet, error) {
	return c.policies.List(ctx)
}

// Policy returns the stored policy for productID.
func (c *Catalog) Policy(ctx context.Context, productID string) (*models.WarrantyPolicy, error) {
	p, err := c.policies.Get(ctx, productID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("policy %s: %w", productID, err)
	}
	return p, err
}
