package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
)

func TestAggregateCanonical(t *testing.T) {
	variants := []models.CanonicalVariant{
		{Quantity: 5},
		{Quantity: 0},
		{Quantity: 3},
	}

	r := AggregateCanonical(variants)
	assert.Equal(t, 8, r.TotalStock)
	assert.Equal(t, 3, r.TotalVariantCount)
	assert.Equal(t, 2, r.InStockVariantCount)
	assert.True(t, r.HasInStockVariants)
}

func TestAggregateCanonicalBackorderCountsAsInStock(t *testing.T) {
	variants := []models.CanonicalVariant{
		{Quantity: 0, InventoryPolicy: "continue"},
	}

	r := AggregateCanonical(variants)
	assert.Equal(t, 0, r.TotalStock)
	assert.True(t, r.HasInStockVariants)
	assert.Equal(t, 1, r.InStockVariantCount)
}

func TestAggregateCanonicalEmpty(t *testing.T) {
	r := AggregateCanonical(nil)
	assert.Equal(t, models.StockRollup{}, r)
	assert.False(t, r.HasInStockVariants)
}

func TestAggregateReplicas(t *testing.T) {
	variants := []*models.ReplicaVariant{
		{Stock: 2},
		{Stock: 0, InventoryPolicy: "continue"},
		{Stock: 0},
	}

	r := AggregateReplicas(variants)
	assert.Equal(t, 2, r.TotalStock)
	assert.Equal(t, 3, r.TotalVariantCount)
	assert.Equal(t, 2, r.InStockVariantCount)
	assert.True(t, r.HasInStockVariants)
}

// The alias chain is resolved once at ingestion, so the aggregator input
// is already normalized. This pins the first-present-wins order.
func TestQuantityAliasResolution(t *testing.T) {
	five, seven, nine := 5, 7, 9

	assert.Equal(t, 5, models.ResolveQuantity(&five, &seven, &nine))
	assert.Equal(t, 7, models.ResolveQuantity(nil, &seven, &nine))
	assert.Equal(t, 9, models.ResolveQuantity(nil, nil, &nine))
	assert.Equal(t, 0, models.ResolveQuantity(nil, nil, nil))
}
