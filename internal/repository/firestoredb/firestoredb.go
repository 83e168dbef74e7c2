// Package firestoredb implements the repository interfaces on Cloud
// Firestore. Mirror records live in the shopifyItems collection; each
// storefront is a top-level collection of replica products with a variants
// subcollection; carts and categories are their own collections.
package firestoredb

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/repository"
)

const (
	mirrorCollection     = "shopifyItems"
	cartCollection       = "carts"
	categoryCollection   = "categories"
	variantSubcollection = "variants"
)

// MirrorRepository is the Firestore-backed repository.MirrorRepository.
type MirrorRepository struct {
	client *firestore.Client
}

// NewMirrorRepository creates a Firestore mirror repository.
func NewMirrorRepository(client *firestore.Client) *MirrorRepository {
	return &MirrorRepository{client: client}
}

func (r *MirrorRepository) Get(ctx context.Context, shopifyID string) (*models.MirrorRecord, error) {
	snap, err := r.client.Collection(mirrorCollection).Doc(shopifyID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mirror %s: %w", shopifyID, err)
	}
	var record models.MirrorRecord
	if err := snap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to decode mirror %s: %w", shopifyID, err)
	}
	return &record, nil
}

func (r *MirrorRepository) Save(ctx context.Context, record *models.MirrorRecord) error {
	if _, err := r.client.Collection(mirrorCollection).Doc(record.ShopifyID).Set(ctx, record); err != nil {
		return fmt.Errorf("failed to save mirror %s: %w", record.ShopifyID, err)
	}
	return nil
}

func (r *MirrorRepository) Delete(ctx context.Context, shopifyID string) error {
	if _, err := r.client.Collection(mirrorCollection).Doc(shopifyID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete mirror %s: %w", shopifyID, err)
	}
	return nil
}

func (r *MirrorRepository) ForEach(ctx context.Context, fn func(record *models.MirrorRecord) error) error {
	iter := r.client.Collection(mirrorCollection).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to iterate mirrors: %w", err)
		}
		var record models.MirrorRecord
		if err := snap.DataTo(&record); err != nil {
			return fmt.Errorf("failed to decode mirror %s: %w", snap.Ref.ID, err)
		}
		if err := fn(&record); err != nil {
			return err
		}
	}
}

// ReplicaRepository is the Firestore-backed repository.ReplicaRepository.
type ReplicaRepository struct {
	client *firestore.Client
}

// NewReplicaRepository creates a Firestore replica repository.
func NewReplicaRepository(client *firestore.Client) *ReplicaRepository {
	return &ReplicaRepository{client: client}
}

func (r *ReplicaRepository) productDoc(storefront, productID string) *firestore.DocumentRef {
	return r.client.Collection(storefront).Doc(productID)
}

func (r *ReplicaRepository) FindBySourceID(ctx context.Context, storefront, sourceShopifyID string) ([]*models.ReplicaProduct, error) {
	iter := r.client.Collection(storefront).
		Where("sourceShopifyId", "==", models.NormalizeID(sourceShopifyID)).
		Documents(ctx)
	defer iter.Stop()

	var out []*models.ReplicaProduct
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query replicas in %s: %w", storefront, err)
		}
		var product models.ReplicaProduct
		if err := snap.DataTo(&product); err != nil {
			return nil, fmt.Errorf("failed to decode replica %s/%s: %w", storefront, snap.Ref.ID, err)
		}
		product.ID = snap.Ref.ID
		out = append(out, &product)
	}
}

func (r *ReplicaRepository) SaveProduct(ctx context.Context, storefront string, product *models.ReplicaProduct) error {
	if _, err := r.productDoc(storefront, product.ID).Set(ctx, product); err != nil {
		return fmt.Errorf("failed to save replica %s/%s: %w", storefront, product.ID, err)
	}
	return nil
}

func (r *ReplicaRepository) DeleteProduct(ctx context.Context, storefront, productID string) (int, error) {
	variants, err := r.ListVariants(ctx, storefront, productID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, v := range variants {
		if err := r.DeleteVariant(ctx, storefront, productID, v.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	if _, err := r.productDoc(storefront, productID).Delete(ctx); err != nil {
		return deleted, fmt.Errorf("failed to delete replica %s/%s: %w", storefront, productID, err)
	}
	return deleted, nil
}

func (r *ReplicaRepository) ListVariants(ctx context.Context, storefront, productID string) ([]*models.ReplicaVariant, error) {
	iter := r.productDoc(storefront, productID).Collection(variantSubcollection).Documents(ctx)
	defer iter.Stop()

	var out []*models.ReplicaVariant
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list variants for %s/%s: %w", storefront, productID, err)
		}
		var variant models.ReplicaVariant
		if err := snap.DataTo(&variant); err != nil {
			return nil, fmt.Errorf("failed to decode variant %s/%s/%s: %w", storefront, productID, snap.Ref.ID, err)
		}
		variant.ID = snap.Ref.ID
		out = append(out, &variant)
	}
}

func (r *ReplicaRepository) SaveVariant(ctx context.Context, storefront, productID string, variant *models.ReplicaVariant) error {
	ref := r.productDoc(storefront, productID).Collection(variantSubcollection).Doc(variant.ID)
	if _, err := ref.Set(ctx, variant); err != nil {
		return fmt.Errorf("failed to save variant %s/%s/%s: %w", storefront, productID, variant.ID, err)
	}
	return nil
}

func (r *ReplicaRepository) DeleteVariant(ctx context.Context, storefront, productID, variantID string) error {
	ref := r.productDoc(storefront, productID).Collection(variantSubcollection).Doc(variantID)
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete variant %s/%s/%s: %w", storefront, productID, variantID, err)
	}
	return nil
}

// CartRepository is the Firestore-backed repository.CartRepository.
type CartRepository struct {
	client *firestore.Client
}

// NewCartRepository creates a Firestore cart repository.
func NewCartRepository(client *firestore.Client) *CartRepository {
	return &CartRepository{client: client}
}

func (r *CartRepository) ForEach(ctx context.Context, fn func(cart *models.Cart) error) error {
	iter := r.client.Collection(cartCollection).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to iterate carts: %w", err)
		}
		var cart models.Cart
		if err := snap.DataTo(&cart); err != nil {
			return fmt.Errorf("failed to decode cart %s: %w", snap.Ref.ID, err)
		}
		cart.ID = snap.Ref.ID
		if err := fn(&cart); err != nil {
			return err
		}
	}
}

func (r *CartRepository) Save(ctx context.Context, cart *models.Cart) error {
	if _, err := r.client.Collection(cartCollection).Doc(cart.ID).Set(ctx, cart); err != nil {
		return fmt.Errorf("failed to save cart %s: %w", cart.ID, err)
	}
	return nil
}

// CategoryRepository is the Firestore-backed repository.CategoryRepository.
type CategoryRepository struct {
	client *firestore.Client
}

// NewCategoryRepository creates a Firestore category repository.
func NewCategoryRepository(client *firestore.Client) *CategoryRepository {
	return &CategoryRepository{client: client}
}

func (r *CategoryRepository) RemoveProductRefs(ctx context.Context, productIDs []string) (int, error) {
	drop := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}

	iter := r.client.Collection(categoryCollection).Documents(ctx)
	defer iter.Stop()
	changed := 0
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return changed, nil
		}
		if err != nil {
			return changed, fmt.Errorf("failed to iterate categories: %w", err)
		}
		var category models.Category
		if err := snap.DataTo(&category); err != nil {
			return changed, fmt.Errorf("failed to decode category %s: %w", snap.Ref.ID, err)
		}
		kept := category.PreviewProductIDs[:0:0]
		for _, id := range category.PreviewProductIDs {
			if !drop[id] {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(category.PreviewProductIDs) {
			continue
		}
		if _, err := snap.Ref.Update(ctx, []firestore.Update{
			{Path: "previewProductIds", Value: kept},
		}); err != nil {
			return changed, fmt.Errorf("failed to update category %s: %w", snap.Ref.ID, err)
		}
		changed++
	}
}
