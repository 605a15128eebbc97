package warranty

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/warrantyflow/internal/keylock"
	"github.com/goatkit/warrantyflow/internal/models"
	"github.com/goatkit/warrantyflow/internal/repository"
)

func newTestCatalog() (*Catalog, *repository.PolicyRepository, *repository.ExclusionRepository) {
	store := repository.NewMemoryDocumentStore()
	locker := keylock.NewMemoryLocker()
	policies := repository.NewPolicyRepository(store, locker)
	exclusions := repository.NewExclusionRepository(store, locker)
	return NewCatalog(policies, exclusions, locker), policies, exclusions
}

func TestCatalogSyncInsertsOnlyNewParseableProducts(t *testing.T) {
	ctx := context.Background()
	catalog, policies, exclusions := newTestCatalog()

	manual := models.WarrantyPolicy{Title: "Spotify 1m", Duration: models.Duration{Amount: 2, Unit: models.UnitYear}}
	require.NoError(t, policies.Put(ctx, "spotify", manual))
	_, err := exclusions.Add(ctx, "banned")
	require.NoError(t, err)

	n, err := catalog.Sync(ctx, []models.Product{
		{ID: "netflix", Title: "Netflix Premium 6m"},
		{ID: "vip", Title: "Premium VIP Lifetime Access"},
		{ID: "spotify", Title: "Spotify 1m"},
		{ID: "banned", Title: "Banned 1y"},
		{ID: "mystery", Title: "Mystery Box"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	set, err := catalog.Policies(ctx)
	require.NoError(t, err)
	assert.Len(t, set, 3)
	assert.Equal(t, models.Lifetime, set["vip"].Duration)
	assert.Equal(t, manual, set["spotify"], "manual edits are sticky")
	assert.NotContains(t, set, "banned")

	n, err = catalog.Sync(ctx, []models.Product{{ID: "netflix", Title: "Netflix Premium 12m"}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCatalogExcludeIsPermanent(t *testing.T) {
	ctx := context.Background()
	catalog, _, _ := newTestCatalog()
	products := []models.Product{{ID: "netflix", Title: "Netflix Premium 6m"}}

	_, err := catalog.Sync(ctx, products)
	require.NoError(t, err)

	removed, err := catalog.Exclude(ctx, "netflix")
	require.NoError(t, err)
	assert.True(t, removed)

	n, err := catalog.Sync(ctx, products)
	require.NoError(t, err)
	assert.Zero(t, n)

	removed, err = catalog.Exclude(ctx, "never-seen")
	require.NoError(t, err)
	assert.False(t, removed)
	n, err = catalog.Sync(ctx, []models.Product{{ID: "never-seen", Title: "Later 3d"}})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = catalog.Exclude(ctx, " ")
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCatalogSetPolicy(t *testing.T) {
	ctx := context.Background()
	catalog, _, _ := newTestCatalog()

	p, err := catalog.SetPolicy(ctx, "p9", models.Duration{Amount: 30, Unit: models.UnitDay})
	require.NoError(t, err)
	assert.Equal(t, "Product p9", p.Title)

	_, err = catalog.Sync(ctx, []models.Product{{ID: "p9", Title: "Thing 1y"}})
	require.NoError(t, err)
	got, err := catalog.Policy(ctx, "p9")
	require.NoError(t, err)
	assert.Equal(t, "30d", got.Duration.String())

	_, err = catalog.SetPolicy(ctx, "p9", models.Duration{Amount: 0, Unit: models.UnitDay})
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCatalogConcurrentSyncAndExclude(t *testing.T) {
	ctx := context.Background()
	catalog, _, _ := newTestCatalog()
	products := []models.Product{{ID: "a", Title: "A 1d"}, {ID: "b", Title: "B 1d"}}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := catalog.Sync(ctx, products)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := catalog.Exclude(ctx, "a")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	set, err := catalog.Policies(ctx)
	require.NoError(t, err)
	assert.NotContains(t, set, "a")
	assert.Contains(t, set, "b")
}
