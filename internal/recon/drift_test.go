package recon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/repository"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/repository/memory"
)

type driftFixture struct {
	mirrors    *memory.MirrorRepository
	replicas   *memory.ReplicaRepository
	carts      *memory.CartRepository
	categories *memory.CategoryRepository
	api        *fakeAPI
	corrector  *DriftCorrector
}

func newDriftFixture(t *testing.T, registry []string, api *fakeAPI) *driftFixture {
	t.Helper()
	f := &driftFixture{
		mirrors:    memory.NewMirrorRepository(),
		replicas:   memory.NewReplicaRepository(),
		carts:      memory.NewCartRepository(),
		categories: memory.NewCategoryRepository(),
		api:        api,
	}
	propagator := NewReplicaPropagator(f.replicas, f.carts, f.mirrors, registry, 2, nil, nil)
	f.corrector = NewDriftCorrector(f.mirrors, f.replicas, f.categories, api, propagator, registry, nil, nil)
	return f
}

func TestDriftRepairsStaleRollup(t *testing.T) {
	canonical := testCanonical()
	api := &fakeAPI{product: canonical, inventory: map[string]int{"inv-1": 5}}
	f := newDriftFixture(t, []string{"storeA"}, api)

	require.NoError(t, f.mirrors.Save(context.Background(), &models.MirrorRecord{
		ShopifyID:  "123",
		RawProduct: canonical,
	}))
	require.NoError(t, f.replicas.SaveProduct(context.Background(), "storeA", &models.ReplicaProduct{
		ID:              "p1",
		SourceShopifyID: "123",
		TotalStock:      0, // stale: canonical says 5
	}))
	require.NoError(t, f.replicas.SaveVariant(context.Background(), "storeA", "p1", &models.ReplicaVariant{
		ID:                     "rv1",
		ShopifyVariantID:       "v1",
		ShopifyInventoryItemID: "inv-1",
		Stock:                  0,
	}))

	report, err := f.corrector.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.VariantUpdates)
	assert.Empty(t, report.Errors)

	variants, err := f.replicas.ListVariants(context.Background(), "storeA", "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, variants[0].Stock)

	products, err := f.replicas.FindBySourceID(context.Background(), "storeA", "123")
	require.NoError(t, err)
	assert.Equal(t, 5, products[0].TotalStock)
}

func TestDriftSkipsConvergedReplica(t *testing.T) {
	canonical := testCanonical()
	api := &fakeAPI{product: canonical, inventory: map[string]int{"inv-1": 5}}
	f := newDriftFixture(t, []string{"storeA"}, api)

	require.NoError(t, f.mirrors.Save(context.Background(), &models.MirrorRecord{
		ShopifyID:  "123",
		RawProduct: canonical,
	}))
	require.NoError(t, f.replicas.SaveProduct(context.Background(), "storeA", &models.ReplicaProduct{
		ID:                  "p1",
		SourceShopifyID:     "123",
		TotalStock:          5,
		HasInStockVariants:  true,
		InStockVariantCount: 1,
		TotalVariantCount:   1,
	}))
	require.NoError(t, f.replicas.SaveVariant(context.Background(), "storeA", "p1", &models.ReplicaVariant{
		ID: "rv1", ShopifyVariantID: "v1", ShopifyInventoryItemID: "inv-1", Stock: 5,
	}))

	report, err := f.corrector.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Updated)
}

func TestDriftDeletesOrphanVariant(t *testing.T) {
	canonical := testCanonical()
	// inv-gone is not in the inventory map, but the product itself exists.
	api := &fakeAPI{product: canonical, inventory: map[string]int{"inv-1": 5}}
	f := newDriftFixture(t, []string{"storeA"}, api)

	require.NoError(t, f.mirrors.Save(context.Background(), &models.MirrorRecord{
		ShopifyID:  "123",
		RawProduct: canonical,
	}))
	require.NoError(t, f.replicas.SaveProduct(context.Background(), "storeA", &models.ReplicaProduct{
		ID: "p1", SourceShopifyID: "123",
	}))
	require.NoError(t, f.replicas.SaveVariant(context.Background(), "storeA", "p1", &models.ReplicaVariant{
		ID: "rv1", ShopifyVariantID: "v1", ShopifyInventoryItemID: "inv-1", Stock: 5,
	}))
	require.NoError(t, f.replicas.SaveVariant(context.Background(), "storeA", "p1", &models.ReplicaVariant{
		ID: "rv2", ShopifyVariantID: "v-gone", ShopifyInventoryItemID: "inv-gone", Stock: 2,
	}))

	report, err := f.corrector.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.VariantsDeleted)
	assert.Zero(t, report.ProductsDeleted)

	variants, err := f.replicas.ListVariants(context.Background(), "storeA", "p1")
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "rv1", variants[0].ID)
}

func TestDeletionCascade(t *testing.T) {
	canonical := testCanonical()
	// Whole product gone upstream.
	api := &fakeAPI{product: nil, inventory: map[string]int{}}
	f := newDriftFixture(t, []string{"storeA", "storeB"}, api)

	require.NoError(t, f.mirrors.Save(context.Background(), &models.MirrorRecord{
		ShopifyID:  "123",
		RawProduct: canonical,
	}))
	for _, storefront := range []string{"storeA", "storeB"} {
		productID := "p-" + storefront
		require.NoError(t, f.replicas.SaveProduct(context.Background(), storefront, &models.ReplicaProduct{
			ID: productID, SourceShopifyID: "123",
		}))
		require.NoError(t, f.replicas.SaveVariant(context.Background(), storefront, productID, &models.ReplicaVariant{
			ID: "rv1", ShopifyVariantID: "v1", ShopifyInventoryItemID: "inv-1",
		}))
		require.NoError(t, f.replicas.SaveVariant(context.Background(), storefront, productID, &models.ReplicaVariant{
			ID: "rv2", ShopifyVariantID: "v2", ShopifyInventoryItemID: "inv-2",
		}))
	}
	f.categories.Put(&models.Category{
		ID:                "cat1",
		Name:              "Featured",
		PreviewProductIDs: []string{"p-storeA", "keep-me"},
	})

	report, err := f.corrector.DeleteProduct(context.Background(), "123")
	require.NoError(t, err)

	assert.True(t, report.MirrorDeleted)
	assert.Equal(t, 2, report.ReplicasDeleted)
	assert.Equal(t, 4, report.VariantsDeleted)
	assert.Equal(t, 1, report.CategoriesUpdated)

	_, err = f.mirrors.Get(context.Background(), "123")
	assert.Equal(t, repository.ErrNotFound, err)

	for _, storefront := range []string{"storeA", "storeB"} {
		products, err := f.replicas.FindBySourceID(context.Background(), storefront, "123")
		require.NoError(t, err)
		assert.Empty(t, products)
	}

	cat := f.categories.Get("cat1")
	assert.Equal(t, []string{"keep-me"}, cat.PreviewProductIDs)
}

func TestDriftCascadesWhenProductGoneDuringOrphanCheck(t *testing.T) {
	canonical := testCanonical()
	// Inventory lookups and the product itself both 404.
	api := &fakeAPI{product: nil, inventory: map[string]int{}}
	f := newDriftFixture(t, []string{"storeA"}, api)

	require.NoError(t, f.mirrors.Save(context.Background(), &models.MirrorRecord{
		ShopifyID:  "123",
		RawProduct: canonical,
	}))
	require.NoError(t, f.replicas.SaveProduct(context.Background(), "storeA", &models.ReplicaProduct{
		ID: "p1", SourceShopifyID: "123",
	}))
	require.NoError(t, f.replicas.SaveVariant(context.Background(), "storeA", "p1", &models.ReplicaVariant{
		ID: "rv1", ShopifyVariantID: "v-stale", ShopifyInventoryItemID: "inv-stale",
	}))

	report, err := f.corrector.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.ProductsDeleted)
	assert.Empty(t, report.Errors)

	_, err = f.mirrors.Get(context.Background(), "123")
	assert.Equal(t, repository.ErrNotFound, err)
}

func TestDriftRefetchesMissingSnapshot(t *testing.T) {
	canonical := testCanonical()
	api := &fakeAPI{product: canonical, inventory: map[string]int{"inv-1": 5}}
	f := newDriftFixture(t, []string{"storeA"}, api)

	// Mirror exists but carries no snapshot.
	require.NoError(t, f.mirrors.Save(context.Background(), &models.MirrorRecord{ShopifyID: "123"}))
	require.NoError(t, f.replicas.SaveProduct(context.Background(), "storeA", &models.ReplicaProduct{
		ID: "p1", SourceShopifyID: "123",
	}))

	report, err := f.corrector.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Empty(t, report.Errors)
}
