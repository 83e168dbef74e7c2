package recon

import "github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"

// AggregateCanonical computes the product-level stock rollup from a
// canonical variant list. Quantities were already resolved through the
// legacy alias chain at ingestion, so no fallback logic lives here.
func AggregateCanonical(variants []models.CanonicalVariant) models.StockRollup {
	var r models.StockRollup
	for i := range variants {
		addToRollup(&r, variants[i].Quantity, variants[i].AllowsBackorder())
	}
	return r
}

// AggregateReplicas computes the same rollup from a replica's stored
// variant documents.
func AggregateReplicas(variants []*models.ReplicaVariant) models.StockRollup {
	var r models.StockRollup
	for _, v := range variants {
		addToRollup(&r, v.Stock, v.AllowsBackorder())
	}
	return r
}

// A variant is in stock when it has quantity or its policy allows selling
// past zero.
func addToRollup(r *models.StockRollup, quantity int, backorder bool) {
	r.TotalVariantCount++
	r.TotalStock += quantity
	if quantity > 0 || backorder {
		r.InStockVariantCount++
		r.HasInStockVariants = true
	}
}
