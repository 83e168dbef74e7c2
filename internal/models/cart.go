package models

import "time"

// Cart is a shopper cart. Reconciliation only ever repriced its items; it
// never creates or deletes carts.
type Cart struct {
	ID        string     `json:"id" firestore:"-"`
	Items     []CartItem `json:"items" firestore:"items"`
	UpdatedAt time.Time  `json:"updatedAt" firestore:"updatedAt"`
}

// CartItem holds the variant reference and the price the shopper saw when
// adding. PriceAtAdd tracks the canonical price within PriceTolerance.
type CartItem struct {
	ShopifyVariantID string  `json:"shopifyVariantId" firestore:"shopifyVariantId"`
	PriceAtAdd       float64 `json:"priceAtAdd" firestore:"priceAtAdd"`
	Quantity         int     `json:"quantity" firestore:"quantity"`
}

// PriceTolerance is the currency-minor-unit rounding slack: a cart item is
// repriced only when |old - new| exceeds this.
const PriceTolerance = 0.01

// Category is a curated storefront category; its preview list references
// replica product ids and is scrubbed when products are deleted upstream.
type Category struct {
	ID                string   `json:"id" firestore:"-"`
	Name              string   `json:"name" firestore:"name"`
	PreviewProductIDs []string `json:"previewProductIds" firestore:"previewProductIds"`
}
