package recon

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/repository"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/repository/memory"
)

type propagateFixture struct {
	replicas   *memory.ReplicaRepository
	carts      *memory.CartRepository
	mirrors    *memory.MirrorRepository
	propagator *ReplicaPropagator
}

func newPropagateFixture(t *testing.T, registry []string) *propagateFixture {
	t.Helper()
	f := &propagateFixture{
		replicas: memory.NewReplicaRepository(),
		carts:    memory.NewCartRepository(),
		mirrors:  memory.NewMirrorRepository(),
	}
	f.propagator = NewReplicaPropagator(f.replicas, f.carts, f.mirrors, registry, 2, nil, nil)
	return f
}

func (f *propagateFixture) seedReplica(t *testing.T, storefront string, product *models.ReplicaProduct, variants ...*models.ReplicaVariant) {
	t.Helper()
	require.NoError(t, f.replicas.SaveProduct(context.Background(), storefront, product))
	for _, v := range variants {
		require.NoError(t, f.replicas.SaveVariant(context.Background(), storefront, product.ID, v))
	}
}

func TestPropagateUpdatesMatchedVariantBySKU(t *testing.T) {
	f := newPropagateFixture(t, []string{"storeA"})
	f.seedReplica(t, "storeA",
		&models.ReplicaProduct{ID: "p1", SourceShopifyID: "123", ManuallyEdited: true},
		&models.ReplicaVariant{ID: "rv1", SKU: "RED-M", Stock: 0, Price: 19.99, Images: []string{"https://cdn/red.jpg"}},
	)

	mirror := &models.MirrorRecord{ShopifyID: "123"}
	require.NoError(t, f.mirrors.Save(context.Background(), mirror))

	report, _ := f.propagator.Propagate(context.Background(), mirror, testCanonical())
	require.True(t, report.OK())
	require.Len(t, report.Succeeded, 1)
	assert.Equal(t, 1, report.Succeeded[0].VariantsUpdated)

	variants, err := f.replicas.ListVariants(context.Background(), "storeA", "p1")
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, 5, variants[0].Stock)
	assert.Equal(t, 29.99, variants[0].Price)
	assert.Equal(t, "RED-M", variants[0].SKU)
	assert.Equal(t, []string{"https://cdn/red.jpg"}, variants[0].Images)
	assert.Equal(t, "v1", variants[0].ShopifyVariantID)
	assert.Equal(t, "inv-1", variants[0].ShopifyInventoryItemID)
}

func TestPropagateRecomputesRollupAndBasePrice(t *testing.T) {
	f := newPropagateFixture(t, []string{"storeA"})
	f.seedReplica(t, "storeA",
		&models.ReplicaProduct{ID: "p1", SourceShopifyID: "123", BasePrice: 9.99, TotalStock: 99},
		&models.ReplicaVariant{ID: "rv1", SKU: "RED-M", Stock: 99},
	)
	mirror := &models.MirrorRecord{ShopifyID: "123"}

	report, _ := f.propagator.Propagate(context.Background(), mirror, testCanonical())
	require.True(t, report.OK())

	products, err := f.replicas.FindBySourceID(context.Background(), "storeA", "123")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 29.99, products[0].BasePrice)
	assert.Equal(t, 5, products[0].TotalStock)
	assert.Equal(t, 1, products[0].InStockVariantCount)
	assert.Equal(t, 1, products[0].TotalVariantCount)
	assert.True(t, products[0].HasInStockVariants)
}

func TestPropagateNeverClobbersMarketsWithEmpty(t *testing.T) {
	f := newPropagateFixture(t, []string{"storeA"})
	f.seedReplica(t, "storeA", &models.ReplicaProduct{
		ID:              "p1",
		SourceShopifyID: "123",
		Markets:         []string{"DE"},
		MarketsObject:   map[string]models.MarketEntry{"DE": {Available: true}},
	})

	// Mirror carries no market data at all.
	mirror := &models.MirrorRecord{ShopifyID: "123"}
	report, _ := f.propagator.Propagate(context.Background(), mirror, testCanonical())
	require.True(t, report.OK())

	products, err := f.replicas.FindBySourceID(context.Background(), "storeA", "123")
	require.NoError(t, err)
	assert.Equal(t, []string{"DE"}, products[0].Markets)
	assert.NotEmpty(t, products[0].MarketsObject)
}

func TestPropagateOverwritesMarketsFromMirror(t *testing.T) {
	f := newPropagateFixture(t, []string{"storeA"})
	f.seedReplica(t, "storeA", &models.ReplicaProduct{
		ID:              "p1",
		SourceShopifyID: "123",
		Markets:         []string{"US"},
	})

	mirror := &models.MirrorRecord{
		ShopifyID:              "123",
		Markets:                []string{"DE", "FI"},
		MarketsObject:          map[string]models.MarketEntry{"DE": {Available: true}},
		PublishedToOnlineStore: true,
	}
	report, _ := f.propagator.Propagate(context.Background(), mirror, testCanonical())
	require.True(t, report.OK())

	products, err := f.replicas.FindBySourceID(context.Background(), "storeA", "123")
	require.NoError(t, err)
	assert.Equal(t, []string{"DE", "FI"}, products[0].Markets)
	assert.True(t, products[0].PublishedToOnlineStore)
}

func TestPropagateUpdatesDefaultVariantPrice(t *testing.T) {
	f := newPropagateFixture(t, []string{"storeA"})
	f.seedReplica(t, "storeA",
		&models.ReplicaProduct{
			ID:                  "p1",
			SourceShopifyID:     "123",
			DefaultVariantID:    "v1",
			DefaultVariantPrice: 19.99,
		},
		&models.ReplicaVariant{ID: "rv1", SKU: "RED-M"},
	)
	mirror := &models.MirrorRecord{ShopifyID: "123"}

	report, _ := f.propagator.Propagate(context.Background(), mirror, testCanonical())
	require.True(t, report.OK())

	products, err := f.replicas.FindBySourceID(context.Background(), "storeA", "123")
	require.NoError(t, err)
	assert.Equal(t, 29.99, products[0].DefaultVariantPrice)
}

func TestPropagatePartialFailureIsolation(t *testing.T) {
	f := newPropagateFixture(t, nil)
	for _, storefront := range []string{"storeA", "storeB", "storeC"} {
		f.seedReplica(t, storefront,
			&models.ReplicaProduct{ID: "p-" + storefront, SourceShopifyID: "123"},
			&models.ReplicaVariant{ID: "rv1", SKU: "RED-M"},
		)
	}

	failing := &failingReplicas{
		ReplicaRepository: f.replicas,
		storefront:        "storeB",
		err:               errors.New("storefront unavailable"),
	}
	propagator := NewReplicaPropagator(failing, f.carts, f.mirrors, []string{"storeA", "storeB", "storeC"}, 2, nil, nil)

	mirror := &models.MirrorRecord{ShopifyID: "123"}
	report, _ := propagator.Propagate(context.Background(), mirror, testCanonical())

	assert.False(t, report.OK())
	require.Len(t, report.Succeeded, 2)
	assert.Equal(t, "storeA", report.Succeeded[0].Storefront)
	assert.Equal(t, "storeC", report.Succeeded[1].Storefront)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "storeB", report.Failed[0].Storefront)

	// The surviving storefronts actually got the update.
	for _, storefront := range []string{"storeA", "storeC"} {
		variants, err := f.replicas.ListVariants(context.Background(), storefront, "p-"+storefront)
		require.NoError(t, err)
		assert.Equal(t, 5, variants[0].Stock)
	}
}

func TestPropagateRecordsProcessedStorefronts(t *testing.T) {
	f := newPropagateFixture(t, []string{"storeA", "storeB"})
	mirror := &models.MirrorRecord{ShopifyID: "123"}
	require.NoError(t, f.mirrors.Save(context.Background(), mirror))

	report, _ := f.propagator.Propagate(context.Background(), mirror, testCanonical())
	require.True(t, report.OK())

	stored, err := f.mirrors.Get(context.Background(), "123")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"storeA", "storeB"}, stored.ProcessedStorefronts)
	assert.Equal(t, 2, stored.StorefrontUsageCount)
}

func TestRepriceCartsHonorsTolerance(t *testing.T) {
	f := newPropagateFixture(t, nil)
	canonical := &models.CanonicalProduct{
		ID: "123",
		Variants: []models.CanonicalVariant{
			{ID: "v1", Price: 30.00, HasPrice: true},
		},
	}
	require.NoError(t, f.carts.Save(context.Background(), &models.Cart{
		ID: "cart1",
		Items: []models.CartItem{
			{ShopifyVariantID: "v1", PriceAtAdd: 29.99},                              // exactly 0.01 under: untouched
			{ShopifyVariantID: "v1", PriceAtAdd: 30.01},                              // exactly 0.01 over: untouched
			{ShopifyVariantID: "v1", PriceAtAdd: 30.02},                              // 0.02 over: repriced
			{ShopifyVariantID: "gid://shopify/ProductVariant/v1", PriceAtAdd: 19.99}, // drifted: repriced
			{ShopifyVariantID: "other", PriceAtAdd: 5.00},
		},
	}))

	repriced, err := f.propagator.RepriceCarts(context.Background(), canonical)
	require.NoError(t, err)
	assert.Equal(t, 1, repriced)

	var carts []*models.Cart
	require.NoError(t, f.carts.ForEach(context.Background(), func(c *models.Cart) error {
		carts = append(carts, c)
		return nil
	}))
	require.Len(t, carts, 1)
	assert.Equal(t, 29.99, carts[0].Items[0].PriceAtAdd)
	assert.Equal(t, 30.01, carts[0].Items[1].PriceAtAdd)
	assert.Equal(t, 30.00, carts[0].Items[2].PriceAtAdd)
	assert.Equal(t, 30.00, carts[0].Items[3].PriceAtAdd)
	assert.Equal(t, 5.00, carts[0].Items[4].PriceAtAdd)
}

func TestRepriceCartsSkipsUnchangedCarts(t *testing.T) {
	f := newPropagateFixture(t, nil)
	require.NoError(t, f.carts.Save(context.Background(), &models.Cart{
		ID:    "cart1",
		Items: []models.CartItem{{ShopifyVariantID: "v1", PriceAtAdd: 29.99}},
	}))

	repriced, err := f.propagator.RepriceCarts(context.Background(), testCanonical())
	require.NoError(t, err)
	assert.Zero(t, repriced)
}

var _ repository.ReplicaRepository = (*failingReplicas)(nil)
