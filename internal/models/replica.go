package models

import "time"

// ReplicaProduct is the per-storefront denormalized product document.
// Name/slug and the image order are admin-curated; the rollup fields are
// recomputed on every reconciliation pass and never hand-edited.
type ReplicaProduct struct {
	ID                     string                 `json:"id" firestore:"-"`
	Name                   string                 `json:"name" firestore:"name"`
	Slug                   string                 `json:"slug" firestore:"slug"`
	SourceShopifyID        string                 `json:"sourceShopifyId" firestore:"sourceShopifyId"`
	SourceShopifyItemDocID string                 `json:"sourceShopifyItemDocId" firestore:"sourceShopifyItemDocId"`
	BasePrice              float64                `json:"basePrice" firestore:"basePrice"`
	DefaultVariantID       string                 `json:"defaultVariantId" firestore:"defaultVariantId"`
	DefaultVariantPrice    float64                `json:"defaultVariantPrice" firestore:"defaultVariantPrice"`
	Images                 []string               `json:"images" firestore:"images"`
	Markets                []string               `json:"markets" firestore:"markets"`
	MarketsObject          map[string]MarketEntry `json:"marketsObject" firestore:"marketsObject"`
	PublishedToOnlineStore bool                   `json:"publishedToOnlineStore" firestore:"publishedToOnlineStore"`
	ManuallyEdited         bool                   `json:"manuallyEdited" firestore:"manuallyEdited"`
	TotalStock             int                    `json:"totalStock" firestore:"totalStock"`
	HasInStockVariants     bool                   `json:"hasInStockVariants" firestore:"hasInStockVariants"`
	InStockVariantCount    int                    `json:"inStockVariantCount" firestore:"inStockVariantCount"`
	TotalVariantCount      int                    `json:"totalVariantCount" firestore:"totalVariantCount"`
	UpdatedAt              time.Time              `json:"updatedAt" firestore:"updatedAt"`
}

// ReplicaVariant is the per-storefront variant document under a
// ReplicaProduct. Images may only be refreshed in place (same underlying
// photo, fresher URL), never appended or removed by automation, and
// DefaultPhoto is operator-curated only.
type ReplicaVariant struct {
	ID                     string   `json:"id" firestore:"-"`
	SKU                    string   `json:"sku" firestore:"sku"`
	Color                  string   `json:"color" firestore:"color"`
	Size                   string   `json:"size" firestore:"size"`
	Type                   string   `json:"type" firestore:"type"`
	ShopifyVariantID       string   `json:"shopifyVariantId" firestore:"shopifyVariantId"`
	ShopifyInventoryItemID string   `json:"shopifyInventoryItemId" firestore:"shopifyInventoryItemId"`
	Stock                  int      `json:"stock" firestore:"stock"`
	Price                  float64  `json:"price" firestore:"price"`
	InventoryPolicy        string   `json:"inventoryPolicy" firestore:"inventoryPolicy"`
	Images                 []string `json:"images" firestore:"images"`
	DefaultPhoto           string   `json:"defaultPhoto" firestore:"defaultPhoto"`
}

// StockRollup is the product-level stock summary recomputed from the
// variant set on every pass.
type StockRollup struct {
	TotalStock          int  `json:"totalStock"`
	HasInStockVariants  bool `json:"hasInStockVariants"`
	InStockVariantCount int  `json:"inStockVariantCount"`
	TotalVariantCount   int  `json:"totalVariantCount"`
}

// ApplyRollup writes a rollup onto the replica product.
func (p *ReplicaProduct) ApplyRollup(r StockRollup) {
	p.TotalStock = r.TotalStock
	p.HasInStockVariants = r.HasInStockVariants
	p.InStockVariantCount = r.InStockVariantCount
	p.TotalVariantCount = r.TotalVariantCount
}

// Rollup reads the rollup fields currently stored on the replica product.
func (p *ReplicaProduct) Rollup() StockRollup {
	return StockRollup{
		TotalStock:          p.TotalStock,
		HasInStockVariants:  p.HasInStockVariants,
		InStockVariantCount: p.InStockVariantCount,
		TotalVariantCount:   p.TotalVariantCount,
	}
}

// AllowsBackorder reports whether the stored inventory policy permits
// selling past zero stock.
func (v *ReplicaVariant) AllowsBackorder() bool {
	return v.InventoryPolicy == BackorderPolicy
}
