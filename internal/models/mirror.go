package models

import "time"

// MirrorRecord is the single durable per-product snapshot of canonical
// state plus derived market data. It is the only place the raw canonical
// product is stored, and the document every inbound event for the same
// product writes.
type MirrorRecord struct {
	ShopifyID              string                 `json:"shopifyId" firestore:"shopifyId"`
	RawProduct             *CanonicalProduct      `json:"rawProduct" firestore:"rawProduct"`
	Markets                []string               `json:"markets" firestore:"markets"`
	MarketsObject          map[string]MarketEntry `json:"marketsObject" firestore:"marketsObject"`
	PublishedToOnlineStore bool                   `json:"publishedToOnlineStore" firestore:"publishedToOnlineStore"`
	Storefronts            []string               `json:"storefronts" firestore:"storefronts"`
	ProcessedStorefronts   []string               `json:"processedStorefronts" firestore:"processedStorefronts"`
	StorefrontUsageCount   int                    `json:"storefrontUsageCount" firestore:"storefrontUsageCount"`
	UpdatedAt              time.Time              `json:"updatedAt" firestore:"updatedAt"`
}

// MarketEntry is the per-market availability/currency/shipping object
// stored on the mirror and propagated verbatim to replicas. Prices are
// global, never market-specific, so no price field lives here.
type MarketEntry struct {
	Available            bool   `json:"available" firestore:"available"`
	Currency             string `json:"currency" firestore:"currency"`
	ShippingRate         string `json:"shippingRate" firestore:"shippingRate"`
	ExpressShippingRate  string `json:"expressShippingRate" firestore:"expressShippingRate"`
	IsShippingEstimate   bool   `json:"isShippingEstimate" firestore:"isShippingEstimate"`
	DeliveryEstimateDays string `json:"deliveryEstimateDays" firestore:"deliveryEstimateDays"`
}

// RecordProcessedStorefront adds a storefront to the monotonic historical
// set and bumps the usage counter. The set never shrinks.
func (m *MirrorRecord) RecordProcessedStorefront(storefront string) {
	m.StorefrontUsageCount++
	for _, s := range m.ProcessedStorefronts {
		if s == storefront {
			return
		}
	}
	m.ProcessedStorefronts = append(m.ProcessedStorefronts, storefront)
}

// TargetStorefronts returns the storefronts this product should propagate
// to: the mirror's assignment when present, else the full registry.
func (m *MirrorRecord) TargetStorefronts(registry []string) []string {
	if len(m.Storefronts) > 0 {
		return m.Storefronts
	}
	return registry
}
