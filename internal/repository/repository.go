package repository

import (
	"context"
	"errors"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// MirrorRepository stores the per-product mirror records. Each record is a
// single document; writes are per-document atomic, no multi-document
// transaction is assumed anywhere in the reconciliation path.
type MirrorRepository interface {
	// Get returns the mirror record for a canonical product id, or
	// ErrNotFound.
	Get(ctx context.Context, shopifyID string) (*models.MirrorRecord, error)
	// Save creates or replaces the mirror record.
	Save(ctx context.Context, record *models.MirrorRecord) error
	// Delete removes the mirror record. Deleting a missing record is not
	// an error.
	Delete(ctx context.Context, shopifyID string) error
	// ForEach visits every mirror record. Returning an error from fn stops
	// the iteration.
	ForEach(ctx context.Context, fn func(record *models.MirrorRecord) error) error
}

// ReplicaRepository stores the per-storefront denormalized products and
// their variant subcollections.
type ReplicaRepository interface {
	// FindBySourceID returns every replica product in a storefront whose
	// sourceShopifyId matches the (numeric-normalized) canonical id.
	FindBySourceID(ctx context.Context, storefront, sourceShopifyID string) ([]*models.ReplicaProduct, error)
	// SaveProduct creates or replaces a replica product document.
	SaveProduct(ctx context.Context, storefront string, product *models.ReplicaProduct) error
	// DeleteProduct removes a replica product and its variant subcollection.
	DeleteProduct(ctx context.Context, storefront, productID string) (variantsDeleted int, err error)
	// ListVariants returns the variants under a replica product.
	ListVariants(ctx context.Context, storefront, productID string) ([]*models.ReplicaVariant, error)
	// SaveVariant creates or replaces one variant document.
	SaveVariant(ctx context.Context, storefront, productID string, variant *models.ReplicaVariant) error
	// DeleteVariant removes one variant document.
	DeleteVariant(ctx context.Context, storefront, productID, variantID string) error
}

// CartRepository scans and updates shopper carts for price fan-out.
type CartRepository interface {
	ForEach(ctx context.Context, fn func(cart *models.Cart) error) error
	Save(ctx context.Context, cart *models.Cart) error
}

// CategoryRepository maintains curated category preview lists.
type CategoryRepository interface {
	// RemoveProductRefs strips the given replica product ids from every
	// category preview list and returns how many categories changed.
	RemoveProductRefs(ctx context.Context, productIDs []string) (int, error)
}
