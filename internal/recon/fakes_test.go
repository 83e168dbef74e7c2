package recon

import (
	"context"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/commerce"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/repository"
)

// fakeAPI satisfies commerce.API for tests.
type fakeAPI struct {
	product      *models.CanonicalProduct
	productErr   error
	markets      *commerce.ProductMarkets
	marketsErr   error
	rates        commerce.ShippingRateTable
	ratesErr     error
	inventory    map[string]int
	inventoryErr error
	publishErr   error
	published    []string
}

func (f *fakeAPI) GetProduct(ctx context.Context, productID string) (*models.CanonicalProduct, error) {
	if f.productErr != nil {
		return nil, f.productErr
	}
	if f.product == nil {
		return nil, commerce.ErrNotFound
	}
	return f.product, nil
}

func (f *fakeAPI) GetVariant(ctx context.Context, variantID string) (*models.CanonicalVariant, error) {
	if f.product != nil {
		if v := f.product.VariantByID(models.NormalizeID(variantID)); v != nil {
			return v, nil
		}
	}
	return nil, commerce.ErrNotFound
}

func (f *fakeAPI) GetProductMarkets(ctx context.Context, productID string) (*commerce.ProductMarkets, error) {
	if f.marketsErr != nil {
		return nil, f.marketsErr
	}
	if f.markets == nil {
		return &commerce.ProductMarkets{}, nil
	}
	return f.markets, nil
}

func (f *fakeAPI) PublishProduct(ctx context.Context, productID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, models.NormalizeID(productID))
	return nil
}

func (f *fakeAPI) GetShippingRates(ctx context.Context) (commerce.ShippingRateTable, error) {
	if f.ratesErr != nil {
		return nil, f.ratesErr
	}
	return f.rates, nil
}

func (f *fakeAPI) GetInventoryLevels(ctx context.Context, inventoryItemID string) (*commerce.InventoryLevel, error) {
	if f.inventoryErr != nil {
		return nil, f.inventoryErr
	}
	qty, ok := f.inventory[models.NormalizeID(inventoryItemID)]
	if !ok {
		return nil, commerce.ErrNotFound
	}
	return &commerce.InventoryLevel{InventoryItemID: inventoryItemID, Available: qty}, nil
}

var _ commerce.API = (*fakeAPI)(nil)

// failingReplicas wraps a replica repository and fails every call for one
// storefront.
type failingReplicas struct {
	repository.ReplicaRepository
	storefront string
	err        error
}

func (f *failingReplicas) FindBySourceID(ctx context.Context, storefront, sourceShopifyID string) ([]*models.ReplicaProduct, error) {
	if storefront == f.storefront {
		return nil, f.err
	}
	return f.ReplicaRepository.FindBySourceID(ctx, storefront, sourceShopifyID)
}
