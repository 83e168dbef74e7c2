package recon

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/commerce"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/metrics"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/repository"
)

// DriftReport summarizes one drift-correction batch run.
type DriftReport struct {
	JobID           string   `json:"jobId"`
	Scanned         int      `json:"scanned"`
	Updated         int      `json:"updated"`
	Skipped         int      `json:"skipped"`
	VariantUpdates  int      `json:"variantUpdates"`
	VariantsDeleted int      `json:"variantsDeleted"`
	ProductsDeleted int      `json:"productsDeleted"`
	Errors          []string `json:"errors,omitempty"`
}

// DeletionReport counts everything removed by the deletion cascade.
type DeletionReport struct {
	ProductID         string `json:"productId"`
	MirrorDeleted     bool   `json:"mirrorDeleted"`
	ReplicasDeleted   int    `json:"replicasDeleted"`
	VariantsDeleted   int    `json:"variantsDeleted"`
	CategoriesUpdated int    `json:"categoriesUpdated"`
}

// DriftCorrector heals divergence between mirror records and storefront
// replicas out of band. It reuses the propagator's update primitives with
// the id-based matcher, so healing and the webhook path converge on
// identical state.
type DriftCorrector struct {
	mirrors    repository.MirrorRepository
	replicas   repository.ReplicaRepository
	categories repository.CategoryRepository
	api        commerce.API
	propagator *ReplicaPropagator
	registry   []string
	log        *logrus.Entry
	metrics    *metrics.Metrics
}

// NewDriftCorrector wires the corrector.
func NewDriftCorrector(mirrors repository.MirrorRepository, replicas repository.ReplicaRepository, categories repository.CategoryRepository, api commerce.API, propagator *ReplicaPropagator, registry []string, log *logrus.Entry, m *metrics.Metrics) *DriftCorrector {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &DriftCorrector{
		mirrors:    mirrors,
		replicas:   replicas,
		categories: categories,
		api:        api,
		propagator: propagator,
		registry:   registry,
		log:        log,
		metrics:    m,
	}
}

// Run scans every mirror record and repairs stale replicas. Per-product
// failures are collected into the report, never aborting the batch; only
// a failure to enumerate the mirror collection itself is fatal.
func (d *DriftCorrector) Run(ctx context.Context) (*DriftReport, error) {
	report := &DriftReport{JobID: uuid.NewString()}
	d.metrics.DriftRun()
	d.log.WithField("jobId", report.JobID).Info("drift correction started")

	err := d.mirrors.ForEach(ctx, func(mirror *models.MirrorRecord) error {
		report.Scanned++
		if err := d.correctMirror(ctx, mirror, report); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", mirror.ShopifyID, err))
			d.log.WithError(err).WithField("productId", mirror.ShopifyID).Error("drift correction failed for product")
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to scan mirror records: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"jobId":   report.JobID,
		"scanned": report.Scanned,
		"updated": report.Updated,
		"skipped": report.Skipped,
		"errors":  len(report.Errors),
	}).Info("drift correction finished")
	return report, nil
}

func (d *DriftCorrector) correctMirror(ctx context.Context, mirror *models.MirrorRecord, report *DriftReport) error {
	canonical := mirror.RawProduct
	if canonical == nil {
		fetched, err := d.api.GetProduct(ctx, mirror.ShopifyID)
		if errors.Is(err, commerce.ErrNotFound) {
			deletion, err := d.DeleteProduct(ctx, mirror.ShopifyID)
			if err != nil {
				return err
			}
			report.ProductsDeleted++
			report.VariantsDeleted += deletion.VariantsDeleted
			return nil
		}
		if err != nil {
			return fmt.Errorf("mirror has no snapshot and product fetch failed: %w", err)
		}
		canonical = fetched
		mirror.RawProduct = fetched
	}

	rollup := AggregateCanonical(canonical.Variants)

	for _, storefront := range mirror.TargetStorefronts(d.registry) {
		found, err := d.replicas.FindBySourceID(ctx, storefront, mirror.ShopifyID)
		if err != nil {
			return fmt.Errorf("failed to query storefront %s: %w", storefront, err)
		}
		for _, replica := range found {
			deleted, cascaded, err := d.pruneOrphanVariants(ctx, storefront, mirror, replica, canonical)
			if err != nil {
				return err
			}
			report.VariantsDeleted += deleted
			if cascaded {
				report.ProductsDeleted++
				return nil
			}

			if replica.Rollup() == rollup && deleted == 0 {
				report.Skipped++
				continue
			}

			n, err := d.propagator.UpdateReplica(ctx, storefront, replica, mirror, canonical, MatchVariantByIDs)
			if err != nil {
				return fmt.Errorf("failed to repair replica %s/%s: %w", storefront, replica.ID, err)
			}
			report.Updated++
			report.VariantUpdates += n
			d.metrics.DriftRepair()
		}
	}
	return nil
}

// pruneOrphanVariants removes replica variants whose canonical
// counterpart is gone upstream. When the whole product turns out to be
// gone the full deletion cascade runs instead (cascaded=true). A failing
// upstream lookup is recoverable: the variant is left alone.
func (d *DriftCorrector) pruneOrphanVariants(ctx context.Context, storefront string, mirror *models.MirrorRecord, replica *models.ReplicaProduct, canonical *models.CanonicalProduct) (deleted int, cascaded bool, err error) {
	variants, err := d.replicas.ListVariants(ctx, storefront, replica.ID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to list variants for %s/%s: %w", storefront, replica.ID, err)
	}

	matched := make(map[string]bool, len(variants))
	for i := range canonical.Variants {
		if rv := MatchVariantByIDs(&canonical.Variants[i], variants); rv != nil {
			matched[rv.ID] = true
		}
	}

	for _, rv := range variants {
		if matched[rv.ID] || rv.ShopifyInventoryItemID == "" {
			continue
		}
		_, err := d.api.GetInventoryLevels(ctx, rv.ShopifyInventoryItemID)
		if err == nil {
			continue
		}
		if !errors.Is(err, commerce.ErrNotFound) {
			d.log.WithError(err).WithFields(logrus.Fields{
				"storefront": storefront,
				"replicaId":  replica.ID,
				"variantId":  rv.ID,
			}).Warn("inventory lookup failed, leaving variant untouched")
			continue
		}

		// Inventory item is gone. Decide variant-gone vs product-gone.
		_, err = d.api.GetProduct(ctx, mirror.ShopifyID)
		if errors.Is(err, commerce.ErrNotFound) {
			deletion, err := d.DeleteProduct(ctx, mirror.ShopifyID)
			if err != nil {
				return deleted, false, err
			}
			return deleted + deletion.VariantsDeleted, true, nil
		}
		if err != nil {
			d.log.WithError(err).WithField("productId", mirror.ShopifyID).
				Warn("product existence check failed, leaving variant untouched")
			continue
		}

		if err := d.replicas.DeleteVariant(ctx, storefront, replica.ID, rv.ID); err != nil {
			return deleted, false, fmt.Errorf("failed to delete orphan variant %s: %w", rv.ID, err)
		}
		deleted++
		d.log.WithFields(logrus.Fields{
			"storefront": storefront,
			"replicaId":  replica.ID,
			"variantId":  rv.ID,
		}).Info("deleted orphan replica variant")
	}
	return deleted, false, nil
}

// DeleteProduct runs the full deletion cascade for a canonical product:
// every storefront's replica products with their variant subcollections,
// category preview references, and finally the mirror record. The delete
// webhook and drift correction both enter here.
func (d *DriftCorrector) DeleteProduct(ctx context.Context, canonicalID string) (*DeletionReport, error) {
	id := models.NormalizeID(canonicalID)
	report := &DeletionReport{ProductID: id}

	storefronts := d.registry
	mirror, err := d.mirrors.Get(ctx, id)
	if err != nil && err != repository.ErrNotFound {
		return report, fmt.Errorf("failed to load mirror for deletion of %s: %w", id, err)
	}
	if mirror != nil {
		storefronts = unionStrings(storefronts, mirror.Storefronts, mirror.ProcessedStorefronts)
	}

	var replicaIDs []string
	for _, storefront := range storefronts {
		found, err := d.replicas.FindBySourceID(ctx, storefront, id)
		if err != nil {
			return report, fmt.Errorf("failed to query storefront %s during deletion: %w", storefront, err)
		}
		for _, replica := range found {
			variantsDeleted, err := d.replicas.DeleteProduct(ctx, storefront, replica.ID)
			if err != nil {
				return report, fmt.Errorf("failed to delete replica %s/%s: %w", storefront, replica.ID, err)
			}
			report.ReplicasDeleted++
			report.VariantsDeleted += variantsDeleted
			replicaIDs = append(replicaIDs, replica.ID)
		}
	}

	if len(replicaIDs) > 0 {
		changed, err := d.categories.RemoveProductRefs(ctx, replicaIDs)
		if err != nil {
			return report, fmt.Errorf("failed to scrub category previews: %w", err)
		}
		report.CategoriesUpdated = changed
	}

	if err := d.mirrors.Delete(ctx, id); err != nil {
		return report, fmt.Errorf("failed to delete mirror %s: %w", id, err)
	}
	report.MirrorDeleted = mirror != nil
	d.metrics.DriftDelete()

	d.log.WithFields(logrus.Fields{
		"productId":         id,
		"replicasDeleted":   report.ReplicasDeleted,
		"variantsDeleted":   report.VariantsDeleted,
		"categoriesUpdated": report.CategoriesUpdated,
	}).Info("deletion cascade complete")
	return report, nil
}

func unionStrings(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, s := range list {
			if s != "" && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
