// Package memory provides in-memory repository implementations used by
// tests and local development. Every read and write deep-copies, so callers
// observe the same snapshot isolation the document store gives them.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/repository"
)

// MirrorRepository is an in-memory repository.MirrorRepository.
type MirrorRepository struct {
	mu      sync.RWMutex
	records map[string]*models.MirrorRecord
}

// NewMirrorRepository creates an empty in-memory mirror repository.
func NewMirrorRepository() *MirrorRepository {
	return &MirrorRepository{records: make(map[string]*models.MirrorRecord)}
}

func (r *MirrorRepository) Get(ctx context.Context, shopifyID string) (*models.MirrorRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[shopifyID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return deepCopy(rec)
}

func (r *MirrorRepository) Save(ctx context.Context, record *models.MirrorRecord) error {
	cp, err := deepCopy(record)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ShopifyID] = cp
	return nil
}

func (r *MirrorRepository) Delete(ctx context.Context, shopifyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, shopifyID)
	return nil
}

func (r *MirrorRepository) ForEach(ctx context.Context, fn func(record *models.MirrorRecord) error) error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)

	for _, id := range ids {
		rec, err := r.Get(ctx, id)
		if err == repository.ErrNotFound {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// ReplicaRepository is an in-memory repository.ReplicaRepository keyed by
// storefront, product id, and variant id.
type ReplicaRepository struct {
	mu       sync.RWMutex
	products map[string]map[string]*models.ReplicaProduct           // storefront -> id -> product
	variants map[string]map[string]map[string]*models.ReplicaVariant // storefront -> product -> id -> variant
}

// NewReplicaRepository creates an empty in-memory replica repository.
func NewReplicaRepository() *ReplicaRepository {
	return &ReplicaRepository{
		products: make(map[string]map[string]*models.ReplicaProduct),
		variants: make(map[string]map[string]map[string]*models.ReplicaVariant),
	}
}

func (r *ReplicaRepository) FindBySourceID(ctx context.Context, storefront, sourceShopifyID string) ([]*models.ReplicaProduct, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.ReplicaProduct
	for _, p := range r.products[storefront] {
		if models.NormalizeID(p.SourceShopifyID) == models.NormalizeID(sourceShopifyID) {
			cp, err := deepCopy(p)
			if err != nil {
				return nil, err
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ReplicaRepository) SaveProduct(ctx context.Context, storefront string, product *models.ReplicaProduct) error {
	if product.ID == "" {
		return fmt.Errorf("replica product missing id")
	}
	cp, err := deepCopy(product)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.products[storefront] == nil {
		r.products[storefront] = make(map[string]*models.ReplicaProduct)
	}
	r.products[storefront][product.ID] = cp
	return nil
}

func (r *ReplicaRepository) DeleteProduct(ctx context.Context, storefront, productID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.products[storefront] != nil {
		delete(r.products[storefront], productID)
	}
	deleted := 0
	if r.variants[storefront] != nil {
		deleted = len(r.variants[storefront][productID])
		delete(r.variants[storefront], productID)
	}
	return deleted, nil
}

func (r *ReplicaRepository) ListVariants(ctx context.Context, storefront, productID string) ([]*models.ReplicaVariant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.ReplicaVariant
	if byProduct := r.variants[storefront]; byProduct != nil {
		for _, v := range byProduct[productID] {
			cp, err := deepCopy(v)
			if err != nil {
				return nil, err
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ReplicaRepository) SaveVariant(ctx context.Context, storefront, productID string, variant *models.ReplicaVariant) error {
	if variant.ID == "" {
		return fmt.Errorf("replica variant missing id")
	}
	cp, err := deepCopy(variant)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.variants[storefront] == nil {
		r.variants[storefront] = make(map[string]map[string]*models.ReplicaVariant)
	}
	if r.variants[storefront][productID] == nil {
		r.variants[storefront][productID] = make(map[string]*models.ReplicaVariant)
	}
	r.variants[storefront][productID][variant.ID] = cp
	return nil
}

func (r *ReplicaRepository) DeleteVariant(ctx context.Context, storefront, productID, variantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if byProduct := r.variants[storefront]; byProduct != nil {
		if byVariant := byProduct[productID]; byVariant != nil {
			delete(byVariant, variantID)
		}
	}
	return nil
}

// CartRepository is an in-memory repository.CartRepository.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]*models.Cart
}

// NewCartRepository creates an empty in-memory cart repository.
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]*models.Cart)}
}

func (r *CartRepository) ForEach(ctx context.Context, fn func(cart *models.Cart) error) error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.carts))
	for id := range r.carts {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)

	for _, id := range ids {
		r.mu.RLock()
		cart, ok := r.carts[id]
		var cp *models.Cart
		var err error
		if ok {
			cp, err = deepCopy(cart)
		}
		r.mu.RUnlock()
		if !ok {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(cp); err != nil {
			return err
		}
	}
	return nil
}

func (r *CartRepository) Save(ctx context.Context, cart *models.Cart) error {
	if cart.ID == "" {
		return fmt.Errorf("cart missing id")
	}
	cp, err := deepCopy(cart)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[cart.ID] = cp
	return nil
}

// CategoryRepository is an in-memory repository.CategoryRepository.
type CategoryRepository struct {
	mu         sync.RWMutex
	categories map[string]*models.Category
}

// NewCategoryRepository creates an empty in-memory category repository.
func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{categories: make(map[string]*models.Category)}
}

// Put seeds a category; used by tests.
func (r *CategoryRepository) Put(category *models.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp, _ := deepCopy(category)
	r.categories[category.ID] = cp
}

// Get returns a seeded category; used by tests.
func (r *CategoryRepository) Get(id string) *models.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp, _ := deepCopy(r.categories[id])
	return cp
}

func (r *CategoryRepository) RemoveProductRefs(ctx context.Context, productIDs []string) (int, error) {
	drop := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	changed := 0
	for _, cat := range r.categories {
		kept := cat.PreviewProductIDs[:0:0]
		for _, id := range cat.PreviewProductIDs {
			if !drop[id] {
				kept = append(kept, id)
			}
		}
		if len(kept) != len(cat.PreviewProductIDs) {
			cat.PreviewProductIDs = kept
			changed++
		}
	}
	return changed, nil
}

// deepCopy round-trips through JSON so stored state and returned values
// never alias.
func deepCopy[T any](in *T) (*T, error) {
	if in == nil {
		return nil, nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}
