package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
)

func TestMatchVariantBySKU(t *testing.T) {
	existing := []*models.ReplicaVariant{
		{ID: "rv1", SKU: "RED-M", Color: "Red", Size: "M"},
		{ID: "rv2", SKU: "BLUE-M", Color: "Blue", Size: "M"},
	}
	canonical := &models.CanonicalVariant{ID: "111", SKU: "RED-M"}

	got := MatchVariant(canonical, existing)
	require.NotNil(t, got)
	assert.Equal(t, "rv1", got.ID)
}

func TestMatchVariantSKUIsCaseSensitive(t *testing.T) {
	existing := []*models.ReplicaVariant{
		{ID: "rv1", SKU: "red-m", Size: "L"},
	}
	canonical := &models.CanonicalVariant{SKU: "RED-M"}

	assert.Nil(t, MatchVariant(canonical, existing))
}

func TestMatchVariantByAttributes(t *testing.T) {
	existing := []*models.ReplicaVariant{
		{ID: "rv1", Color: "Red", Size: "M"},
		{ID: "rv2", Color: "Red", Size: "L"},
	}
	canonical := &models.CanonicalVariant{
		OptionValues: []string{"Red", "L"},
	}

	got := MatchVariant(canonical, existing)
	require.NotNil(t, got)
	assert.Equal(t, "rv2", got.ID)
}

func TestMatchVariantAttributeCompareIsFolded(t *testing.T) {
	existing := []*models.ReplicaVariant{
		{ID: "rv1", Color: "red", Size: " m "},
	}
	canonical := &models.CanonicalVariant{
		OptionValues: []string{"RED", "M"},
	}

	got := MatchVariant(canonical, existing)
	require.NotNil(t, got)
	assert.Equal(t, "rv1", got.ID)
}

// Size equality alone is a match even when colors disagree. Two same-size
// variants that differ only in color can be conflated; this pins the
// long-standing behavior so any future tightening is a deliberate change.
func TestMatchVariantSizeAloneSuffices(t *testing.T) {
	existing := []*models.ReplicaVariant{
		{ID: "rv1", Color: "Blue", Size: "M"},
	}
	canonical := &models.CanonicalVariant{
		OptionValues: []string{"Red", "M"},
	}

	got := MatchVariant(canonical, existing)
	require.NotNil(t, got)
	assert.Equal(t, "rv1", got.ID)
}

func TestMatchVariantNoMatchReturnsNil(t *testing.T) {
	existing := []*models.ReplicaVariant{
		{ID: "rv1", SKU: "GREEN-S", Color: "Green", Size: "S"},
	}
	canonical := &models.CanonicalVariant{
		SKU:          "RED-M",
		OptionValues: []string{"Red", "M"},
	}

	assert.Nil(t, MatchVariant(canonical, existing))
	assert.Nil(t, MatchVariant(nil, existing))
	assert.Nil(t, MatchVariant(canonical, nil))
}

func TestMatchVariantByIDsPrefersInventoryItem(t *testing.T) {
	existing := []*models.ReplicaVariant{
		{ID: "rv1", ShopifyVariantID: "111", ShopifyInventoryItemID: "inv-2"},
		{ID: "rv2", ShopifyVariantID: "222", ShopifyInventoryItemID: "inv-1"},
	}
	canonical := &models.CanonicalVariant{ID: "111", InventoryItemID: "inv-1"}

	got := MatchVariantByIDs(canonical, existing)
	require.NotNil(t, got)
	assert.Equal(t, "rv2", got.ID)
}

func TestMatchVariantByIDsFallsBackToVariantID(t *testing.T) {
	existing := []*models.ReplicaVariant{
		{ID: "rv1", ShopifyVariantID: "gid://shopify/ProductVariant/111"},
	}
	canonical := &models.CanonicalVariant{ID: "111", InventoryItemID: "inv-9"}

	got := MatchVariantByIDs(canonical, existing)
	require.NotNil(t, got)
	assert.Equal(t, "rv1", got.ID)
}
