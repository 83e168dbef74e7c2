// Command driftcorrect runs one drift-correction pass over every mirror
// record and prints a summary. Exit code 1 signals that at least one
// product failed to heal, for cron/CI automation.
package main

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/commerce/shopify"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/config"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/metrics"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/recon"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/repository/firestoredb"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logger.WithField("service", "driftcorrect")

	ctx := context.Background()

	fsClient, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Firestore")
	}
	defer fsClient.Close()

	mirrors := firestoredb.NewMirrorRepository(fsClient)
	replicas := firestoredb.NewReplicaRepository(fsClient)
	carts := firestoredb.NewCartRepository(fsClient)
	categories := firestoredb.NewCategoryRepository(fsClient)

	api := shopify.NewClient(cfg.ShopifyStore, cfg.ShopifyAccessToken)
	m := metrics.New()

	propagator := recon.NewReplicaPropagator(replicas, carts, mirrors, cfg.Storefronts, cfg.PropagationWorkers, log.WithField("component", "propagate"), m)
	corrector := recon.NewDriftCorrector(mirrors, replicas, categories, api, propagator, cfg.Storefronts, log.WithField("component", "drift"), m)

	report, err := corrector.Run(ctx)
	if err != nil {
		log.WithError(err).Error("drift correction aborted")
		os.Exit(1)
	}

	fmt.Printf("drift correction %s\n", report.JobID)
	fmt.Printf("  scanned:          %d\n", report.Scanned)
	fmt.Printf("  updated:          %d\n", report.Updated)
	fmt.Printf("  skipped:          %d\n", report.Skipped)
	fmt.Printf("  variant updates:  %d\n", report.VariantUpdates)
	fmt.Printf("  variants deleted: %d\n", report.VariantsDeleted)
	fmt.Printf("  products deleted: %d\n", report.ProductsDeleted)
	fmt.Printf("  errors:           %d\n", len(report.Errors))
	for _, e := range report.Errors {
		fmt.Printf("    - %s\n", e)
	}

	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}
