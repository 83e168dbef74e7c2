package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/commerce"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/repository"
)

// Delta reports which derived mirror fields actually changed, so callers
// can skip work downstream.
type Delta struct {
	MarketsChanged     bool
	PublicationChanged bool
}

// MirrorUpdater applies an inbound canonical product snapshot to the
// per-product mirror record. The mirror is the only durable home of the
// raw canonical snapshot and the merge point every inbound event for the
// same product writes.
type MirrorUpdater struct {
	mirrors  repository.MirrorRepository
	api      commerce.API
	rates    RateSource
	resolver *MarketResolver
	log      *logrus.Entry
}

// NewMirrorUpdater wires the updater. rates and resolver drive market
// derivation; api additionally serves the auto-publish side effect.
func NewMirrorUpdater(mirrors repository.MirrorRepository, api commerce.API, rates RateSource, resolver *MarketResolver, log *logrus.Entry) *MirrorUpdater {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &MirrorUpdater{mirrors: mirrors, api: api, rates: rates, resolver: resolver, log: log}
}

// ApplyCanonicalUpdate merges the canonical snapshot into the mirror and
// persists it. rawProduct is always overwritten with the latest snapshot.
// Market/publication data is recomputed when the upstream query succeeds;
// on failure the mirror's previous values are retained, never nulled out.
// The auto-publish attempt on an active-but-unpublished product is
// returned as an EffectResult, not an error.
func (u *MirrorUpdater) ApplyCanonicalUpdate(ctx context.Context, canonical *models.CanonicalProduct) (*models.MirrorRecord, Delta, []EffectResult, error) {
	if canonical == nil || canonical.ID == "" {
		return nil, Delta{}, nil, fmt.Errorf("canonical product missing id")
	}

	mirror, err := u.mirrors.Get(ctx, canonical.ID)
	if err == repository.ErrNotFound {
		mirror = &models.MirrorRecord{ShopifyID: canonical.ID}
	} else if err != nil {
		return nil, Delta{}, nil, fmt.Errorf("failed to load mirror for %s: %w", canonical.ID, err)
	}

	prevMarkets := mirror.Markets
	prevPublished := mirror.PublishedToOnlineStore

	mirror.RawProduct = canonical
	mirror.UpdatedAt = time.Now()

	var effects []EffectResult

	marketData, err := u.api.GetProductMarkets(ctx, canonical.ID)
	if err != nil {
		u.log.WithError(err).WithField("productId", canonical.ID).
			Warn("market query failed, retaining previous market data")
	} else {
		table, rateErr := u.rates.Rates(ctx)
		if rateErr != nil {
			u.log.WithError(rateErr).WithField("productId", canonical.ID).
				Warn("shipping-rate fetch failed, falling back to estimates")
			table = nil
		}
		mirror.Markets = AvailableMarketCodes(marketData.Markets)
		mirror.MarketsObject = u.resolver.Resolve(marketData.Markets, table)
		mirror.PublishedToOnlineStore = marketData.PublishedToOnlineStore

		if canonical.Status == "active" && !mirror.PublishedToOnlineStore {
			effect := EffectResult{Name: "auto-publish", OK: true}
			if err := u.api.PublishProduct(ctx, canonical.ID); err != nil {
				effect.OK = false
				effect.Err = err
				u.log.WithError(err).WithField("productId", canonical.ID).
					Warn("auto-publish failed")
			} else {
				mirror.PublishedToOnlineStore = true
			}
			effects = append(effects, effect)
		}
	}

	delta := Delta{
		MarketsChanged:     !sameStrings(prevMarkets, mirror.Markets),
		PublicationChanged: prevPublished != mirror.PublishedToOnlineStore,
	}

	if err := u.mirrors.Save(ctx, mirror); err != nil {
		return nil, Delta{}, effects, fmt.Errorf("failed to save mirror for %s: %w", canonical.ID, err)
	}
	return mirror, delta, effects, nil
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
