package recon

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/commerce"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
)

// MarketDefault is the static per-market fallback used when no carrier
// rate is available.
type MarketDefault struct {
	ShippingEstimate     string `json:"shippingEstimate"`
	ExpressEstimate      string `json:"expressEstimate"`
	DeliveryEstimateDays string `json:"deliveryEstimateDays"`
	Currency             string `json:"currency"`
}

// MarketResolver derives the per-market availability/currency/shipping
// object stored on the mirror. Variant prices are global, never
// market-specific, so no price is resolved here.
type MarketResolver struct {
	defaults map[string]MarketDefault
	log      *logrus.Entry
}

// NewMarketResolver creates a resolver with the configured per-market
// defaults.
func NewMarketResolver(defaults map[string]MarketDefault, log *logrus.Entry) *MarketResolver {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &MarketResolver{defaults: defaults, log: log}
}

// Resolve builds the markets object for the given market list. rates may
// be nil (shipping-rate fetch failed); every market then falls back to its
// configured estimate with isShippingEstimate=true.
func (r *MarketResolver) Resolve(markets []commerce.MarketAvailability, rates commerce.ShippingRateTable) map[string]models.MarketEntry {
	out := make(map[string]models.MarketEntry, len(markets))
	for _, m := range markets {
		entry := models.MarketEntry{
			Available: m.Available,
			Currency:  m.Currency,
		}
		def := r.defaults[m.Code]
		if entry.Currency == "" {
			entry.Currency = def.Currency
		}
		entry.DeliveryEstimateDays = def.DeliveryEstimateDays

		if carrier := rates[m.Code]; len(carrier) > 0 {
			standard := selectStandardRate(carrier)
			entry.ShippingRate = standard.Price
			entry.ExpressShippingRate = selectExpressRate(carrier, standard).Price
			entry.IsShippingEstimate = false
		} else {
			entry.ShippingRate = def.ShippingEstimate
			entry.ExpressShippingRate = def.ExpressEstimate
			if entry.ExpressShippingRate == "" {
				entry.ExpressShippingRate = def.ShippingEstimate
			}
			entry.IsShippingEstimate = true
			if len(rates) > 0 {
				r.log.WithField("market", m.Code).Debug("no carrier rate for market, using estimate")
			}
		}
		out[m.Code] = entry
	}
	return out
}

// selectStandardRate picks the rate named "standard" (case-insensitive
// substring), else the cheapest.
func selectStandardRate(rates []commerce.ShippingRate) commerce.ShippingRate {
	for _, rt := range rates {
		if strings.Contains(strings.ToLower(rt.Name), "standard") {
			return rt
		}
	}
	best := rates[0]
	for _, rt := range rates[1:] {
		if rt.PriceValue() < best.PriceValue() {
			best = rt
		}
	}
	return best
}

// selectExpressRate picks the rate named "express", else the most
// expensive, else the standard rate.
func selectExpressRate(rates []commerce.ShippingRate, standard commerce.ShippingRate) commerce.ShippingRate {
	for _, rt := range rates {
		if strings.Contains(strings.ToLower(rt.Name), "express") {
			return rt
		}
	}
	best := standard
	for _, rt := range rates {
		if rt.PriceValue() > best.PriceValue() {
			best = rt
		}
	}
	return best
}

// AvailableMarketCodes lists the codes marked sellable, in input order.
func AvailableMarketCodes(markets []commerce.MarketAvailability) []string {
	var codes []string
	for _, m := range markets {
		if m.Available {
			codes = append(codes, m.Code)
		}
	}
	return codes
}
