package recon

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/metrics"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/repository"
)

// PropagationReport lists which storefronts were updated and which
// failed. A failed storefront never aborts the others.
type PropagationReport struct {
	Succeeded []StorefrontResult  `json:"succeeded"`
	Failed    []StorefrontFailure `json:"failed,omitempty"`
}

// StorefrontResult is one storefront's successful propagation outcome.
type StorefrontResult struct {
	Storefront      string `json:"storefront"`
	ReplicasUpdated int    `json:"replicasUpdated"`
	VariantsUpdated int    `json:"variantsUpdated"`
}

// StorefrontFailure is one storefront's propagation error.
type StorefrontFailure struct {
	Storefront string `json:"storefront"`
	Error      string `json:"error"`
}

// OK reports whether every storefront propagated cleanly.
func (r *PropagationReport) OK() bool {
	return len(r.Failed) == 0
}

// ReplicaPropagator pushes merged mirror state into every storefront
// replica referencing the canonical product, then fans price changes out
// to carts. Storefronts are independent units of work processed on a
// bounded pool; failures are isolated per storefront.
type ReplicaPropagator struct {
	replicas repository.ReplicaRepository
	carts    repository.CartRepository
	mirrors  repository.MirrorRepository
	registry []string
	workers  int
	log      *logrus.Entry
	metrics  *metrics.Metrics
}

// NewReplicaPropagator wires the propagator. registry is the explicit
// storefront list from configuration, used when a mirror carries no
// storefront assignment. workers bounds the propagation pool.
func NewReplicaPropagator(replicas repository.ReplicaRepository, carts repository.CartRepository, mirrors repository.MirrorRepository, registry []string, workers int, log *logrus.Entry, m *metrics.Metrics) *ReplicaPropagator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if workers <= 0 {
		workers = 4
	}
	return &ReplicaPropagator{
		replicas: replicas,
		carts:    carts,
		mirrors:  mirrors,
		registry: registry,
		workers:  workers,
		log:      log,
		metrics:  m,
	}
}

// Propagate applies the merged mirror state to every target storefront
// and runs the cart price fan-out. Propagation reads the mirror's merged
// state, never the raw inbound payload, so replicas cannot get ahead of
// the mirror.
func (p *ReplicaPropagator) Propagate(ctx context.Context, mirror *models.MirrorRecord, canonical *models.CanonicalProduct) (*PropagationReport, []EffectResult) {
	report := &PropagationReport{}
	targets := mirror.TargetStorefronts(p.registry)

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.workers)

	for _, storefront := range targets {
		storefront := storefront
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			replicas, variants, err := p.propagateStorefront(ctx, storefront, mirror, canonical)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.log.WithError(err).WithFields(logrus.Fields{
					"productId":  canonical.ID,
					"storefront": storefront,
				}).Error("storefront propagation failed")
				report.Failed = append(report.Failed, StorefrontFailure{Storefront: storefront, Error: err.Error()})
				return
			}
			report.Succeeded = append(report.Succeeded, StorefrontResult{
				Storefront:      storefront,
				ReplicasUpdated: replicas,
				VariantsUpdated: variants,
			})
		}()
	}
	wg.Wait()

	sort.Slice(report.Succeeded, func(i, j int) bool { return report.Succeeded[i].Storefront < report.Succeeded[j].Storefront })
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Storefront < report.Failed[j].Storefront })

	for _, s := range report.Succeeded {
		mirror.RecordProcessedStorefront(s.Storefront)
	}
	if len(report.Succeeded) > 0 {
		if err := p.mirrors.Save(ctx, mirror); err != nil {
			p.log.WithError(err).WithField("productId", canonical.ID).
				Warn("failed to record processed storefronts on mirror")
		}
	}

	var effects []EffectResult
	repriced, err := p.RepriceCarts(ctx, canonical)
	effect := EffectResult{Name: "cart-fanout", OK: err == nil, Err: err}
	if err != nil {
		p.log.WithError(err).WithField("productId", canonical.ID).Warn("cart price fan-out failed")
	}
	p.metrics.CartsRepriced(repriced)
	effects = append(effects, effect)

	return report, effects
}

// propagateStorefront updates every replica in one storefront referencing
// the canonical product.
func (p *ReplicaPropagator) propagateStorefront(ctx context.Context, storefront string, mirror *models.MirrorRecord, canonical *models.CanonicalProduct) (replicasUpdated, variantsUpdated int, err error) {
	found, err := p.replicas.FindBySourceID(ctx, storefront, canonical.ID)
	if err != nil {
		return 0, 0, err
	}
	for _, replica := range found {
		n, err := p.UpdateReplica(ctx, storefront, replica, mirror, canonical, MatchVariant)
		if err != nil {
			return replicasUpdated, variantsUpdated, err
		}
		replicasUpdated++
		variantsUpdated += n
		p.metrics.ReplicaUpdated()
	}
	return replicasUpdated, variantsUpdated, nil
}

// Matcher selects the replica variant a canonical variant refers to.
type Matcher func(canonical *models.CanonicalVariant, existing []*models.ReplicaVariant) *models.ReplicaVariant

// UpdateReplica applies price/image/stock/market state to one replica
// product and its variants. Drift correction calls this with the id-based
// matcher; the webhook path uses the SKU/attribute matcher. Sharing this
// method is what keeps both paths convergent.
func (p *ReplicaPropagator) UpdateReplica(ctx context.Context, storefront string, replica *models.ReplicaProduct, mirror *models.MirrorRecord, canonical *models.CanonicalProduct, match Matcher) (variantsUpdated int, err error) {
	if len(canonical.Variants) > 0 && canonical.Variants[0].HasPrice {
		replica.BasePrice = canonical.Variants[0].Price
	}

	replica.Images = ReconcileProductImages(replica.Images, canonical.ImageURLs(), replica.ManuallyEdited)

	// Never clobber replica market data with an empty mirror.
	if len(mirror.Markets) > 0 {
		replica.Markets = mirror.Markets
	}
	if len(mirror.MarketsObject) > 0 {
		replica.MarketsObject = mirror.MarketsObject
	}
	replica.PublishedToOnlineStore = mirror.PublishedToOnlineStore

	variants, err := p.replicas.ListVariants(ctx, storefront, replica.ID)
	if err != nil {
		return 0, err
	}

	// Each replica variant can absorb at most one canonical variant.
	unmatched := make([]*models.ReplicaVariant, len(variants))
	copy(unmatched, variants)
	pricesByVariantDoc := make(map[string]float64)

	for i := range canonical.Variants {
		cv := &canonical.Variants[i]
		rv := match(cv, unmatched)
		if rv == nil {
			continue
		}
		for j, u := range unmatched {
			if u == rv {
				unmatched = append(unmatched[:j], unmatched[j+1:]...)
				break
			}
		}

		rv.ShopifyVariantID = cv.ID
		rv.ShopifyInventoryItemID = cv.InventoryItemID
		rv.Stock = cv.Quantity
		rv.InventoryPolicy = cv.InventoryPolicy
		if cv.HasPrice {
			rv.Price = cv.Price
			pricesByVariantDoc[rv.ID] = cv.Price
		}

		candidates := canonical.ImagesForVariant(cv.ID)
		if refreshed, ok := ReconcileVariantImages(rv.Images, candidates); ok {
			rv.Images = refreshed
		} else {
			p.metrics.ImageAnomaly()
			p.log.WithFields(logrus.Fields{
				"productId":  canonical.ID,
				"storefront": storefront,
				"replicaId":  replica.ID,
				"variantId":  rv.ID,
			}).Error("variant image reconciliation would change array length, update aborted")
		}

		if err := p.replicas.SaveVariant(ctx, storefront, replica.ID, rv); err != nil {
			return variantsUpdated, fmt.Errorf("failed to save variant %s: %w", rv.ID, err)
		}
		variantsUpdated++
	}

	p.applyDefaultVariantPrice(replica, canonical, variants, pricesByVariantDoc)

	replica.ApplyRollup(AggregateReplicas(variants))
	replica.UpdatedAt = time.Now()

	if err := p.replicas.SaveProduct(ctx, storefront, replica); err != nil {
		return variantsUpdated, fmt.Errorf("failed to save replica %s: %w", replica.ID, err)
	}
	return variantsUpdated, nil
}

// applyDefaultVariantPrice refreshes the card-display price when the
// default variant's canonical price moved. A direct canonical-id match
// wins over the previously recorded replica variant id.
func (p *ReplicaPropagator) applyDefaultVariantPrice(replica *models.ReplicaProduct, canonical *models.CanonicalProduct, variants []*models.ReplicaVariant, pricesByVariantDoc map[string]float64) {
	if replica.DefaultVariantID == "" {
		return
	}
	if cv := canonical.VariantByID(models.NormalizeID(replica.DefaultVariantID)); cv != nil && cv.HasPrice {
		if cv.Price != replica.DefaultVariantPrice {
			replica.DefaultVariantPrice = cv.Price
		}
		return
	}
	for _, rv := range variants {
		if rv.ID != replica.DefaultVariantID && models.NormalizeID(rv.ShopifyVariantID) != models.NormalizeID(replica.DefaultVariantID) {
			continue
		}
		if price, ok := pricesByVariantDoc[rv.ID]; ok && price != replica.DefaultVariantPrice {
			replica.DefaultVariantPrice = price
		}
		return
	}
}

// RepriceCarts fans the canonical variant prices out to cart items. A
// cart item is rewritten only when its priceAtAdd drifts from the
// canonical price by more than the currency-minor-unit tolerance. Returns
// how many carts changed.
func (p *ReplicaPropagator) RepriceCarts(ctx context.Context, canonical *models.CanonicalProduct) (int, error) {
	prices := make(map[string]float64, len(canonical.Variants))
	for i := range canonical.Variants {
		cv := &canonical.Variants[i]
		if cv.HasPrice {
			prices[models.NormalizeID(cv.ID)] = cv.Price
		}
	}
	if len(prices) == 0 {
		return 0, nil
	}

	repriced := 0
	err := p.carts.ForEach(ctx, func(cart *models.Cart) error {
		changed := false
		for i := range cart.Items {
			item := &cart.Items[i]
			price, ok := prices[models.NormalizeID(item.ShopifyVariantID)]
			if !ok {
				continue
			}
			// Compare at cent precision: float64 noise around a nominal
			// one-cent difference must not count as drift.
			drift := math.Round(math.Abs(item.PriceAtAdd-price)*100) / 100
			if drift > models.PriceTolerance {
				item.PriceAtAdd = price
				changed = true
			}
		}
		if !changed {
			return nil
		}
		cart.UpdatedAt = time.Now()
		if err := p.carts.Save(ctx, cart); err != nil {
			return fmt.Errorf("failed to save cart %s: %w", cart.ID, err)
		}
		repriced++
		return nil
	})
	return repriced, err
}
