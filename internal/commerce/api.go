// Package commerce defines the upstream commerce-platform interface the
// reconciliation engine consumes, plus the HMAC gate for inbound webhooks.
// Every call may fail with a network or HTTP error; callers treat failure
// as "use last-known-good state", never as fatal to reconciliation. Only
// ErrNotFound carries semantic weight (it triggers the deletion path in
// drift correction).
package commerce

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
)

// ErrNotFound reports that the requested entity no longer exists upstream.
var ErrNotFound = errors.New("commerce: not found")

// API is the upstream commerce platform surface consumed by reconciliation.
type API interface {
	// GetProduct fetches the canonical product, normalized. Returns
	// ErrNotFound when the product is gone upstream.
	GetProduct(ctx context.Context, productID string) (*models.CanonicalProduct, error)
	// GetVariant fetches a single canonical variant. Returns ErrNotFound
	// when the variant is gone upstream.
	GetVariant(ctx context.Context, variantID string) (*models.CanonicalVariant, error)
	// GetProductMarkets returns the publication/market data for a product.
	GetProductMarkets(ctx context.Context, productID string) (*ProductMarkets, error)
	// PublishProduct publishes the product to the online store.
	PublishProduct(ctx context.Context, productID string) error
	// GetShippingRates returns the carrier rate table keyed by country code.
	GetShippingRates(ctx context.Context) (ShippingRateTable, error)
	// GetInventoryLevels returns the stock level for an inventory item.
	// Returns ErrNotFound when the inventory item is gone upstream.
	GetInventoryLevels(ctx context.Context, inventoryItemID string) (*InventoryLevel, error)
}

// ProductMarkets is the per-product publication and market availability
// result.
type ProductMarkets struct {
	PublishedToOnlineStore bool
	Markets                []MarketAvailability
}

// MarketAvailability is one market's storefront availability.
type MarketAvailability struct {
	Code      string // ISO country/market code, e.g. "DE"
	Available bool
	Currency  string
}

// MarketCodes returns the codes of all listed markets, in order.
func (p *ProductMarkets) MarketCodes() []string {
	codes := make([]string, 0, len(p.Markets))
	for _, m := range p.Markets {
		codes = append(codes, m.Code)
	}
	return codes
}

// ShippingRateTable maps a market/country code to its carrier rates.
type ShippingRateTable map[string][]ShippingRate

// ShippingRate is one carrier rate option for a market.
type ShippingRate struct {
	Name     string
	Price    string
	Currency string
}

// PriceValue parses the rate's price for comparisons; unparseable prices
// sort as zero.
func (r ShippingRate) PriceValue() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(r.Price), 64)
	if err != nil {
		return 0
	}
	return f
}

// InventoryLevel is the upstream stock level for one inventory item.
type InventoryLevel struct {
	InventoryItemID string
	Available       int
}

// VerifySignature checks an HMAC-SHA256 webhook signature over the raw
// body. The upstream platform sends base64; older integrations sent hex,
// so both encodings of the digest are accepted. Comparison is
// constant-time.
func VerifySignature(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	digest := mac.Sum(nil)

	if decoded, err := base64.StdEncoding.DecodeString(signature); err == nil {
		if hmac.Equal(decoded, digest) {
			return true
		}
	}
	if decoded, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256=")); err == nil {
		if hmac.Equal(decoded, digest) {
			return true
		}
	}
	return false
}
