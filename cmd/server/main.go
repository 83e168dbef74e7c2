package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/commerce/shopify"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/config"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/events"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/handlers"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/metrics"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/middleware"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/recon"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/repository/firestoredb"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/secrets"
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
	log := logger.WithField("service", "storefront-recon-service")

	ctx := context.Background()

	// Firestore is the document store every repository runs on.
	fsClient, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Firestore")
	}
	defer fsClient.Close()

	mirrors := firestoredb.NewMirrorRepository(fsClient)
	replicas := firestoredb.NewReplicaRepository(fsClient)
	carts := firestoredb.NewCartRepository(fsClient)
	categories := firestoredb.NewCategoryRepository(fsClient)

	// Credentials may come from Secret Manager instead of the environment.
	store, accessToken, webhookSecret := cfg.ShopifyStore, cfg.ShopifyAccessToken, cfg.ShopifyWebhookSecret
	if cfg.GCPProjectID != "" && (accessToken == "" || webhookSecret == "") {
		sm, err := secrets.NewGCPSecretManager(ctx, cfg.GCPProjectID)
		if err != nil {
			log.WithError(err).Warn("failed to initialize Secret Manager, using environment credentials")
		} else {
			defer sm.Close()
			if secret, err := sm.GetStoreSecret(ctx, sm.BuildSecretName(store)); err != nil {
				log.WithError(err).Warn("failed to load store secret, using environment credentials")
			} else {
				if secret.AccessToken != "" {
					accessToken = secret.AccessToken
				}
				if secret.WebhookSecret != "" {
					webhookSecret = secret.WebhookSecret
				}
			}
		}
	}
	if webhookSecret == "" {
		log.Fatal("no webhook secret configured, refusing to accept unsigned webhooks")
	}

	api := shopify.NewClient(store, accessToken)

	// Redis only caches the shipping-rate table; absence degrades to
	// direct fetches.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("invalid REDIS_URL, running without shipping-rate cache")
		} else {
			redisClient = redis.NewClient(opts)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.WithError(err).Warn("Redis unreachable, running without shipping-rate cache")
				redisClient = nil
			}
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.WithError(err).Warn("NATS unreachable, events disabled")
			natsConn = nil
		} else {
			defer natsConn.Close()
		}
	}

	m := metrics.New()
	publisher := events.NewPublisher(natsConn, log.WithField("component", "events"))
	rates := recon.NewCachedRateSource(api, redisClient, cfg.ShippingRateCacheTTL, log.WithField("component", "ratecache"))
	resolver := recon.NewMarketResolver(cfg.MarketDefaults, log.WithField("component", "markets"))
	updater := recon.NewMirrorUpdater(mirrors, api, rates, resolver, log.WithField("component", "mirror"))
	propagator := recon.NewReplicaPropagator(replicas, carts, mirrors, cfg.Storefronts, cfg.PropagationWorkers, log.WithField("component", "propagate"), m)
	corrector := recon.NewDriftCorrector(mirrors, replicas, categories, api, propagator, cfg.Storefronts, log.WithField("component", "drift"), m)

	healthHandler := handlers.NewHealthHandler()
	webhookHandler := handlers.NewWebhookHandler(updater, propagator, corrector, publisher, webhookSecret, log.WithField("component", "webhooks"), m)
	driftHandler := handlers.NewDriftHandler(corrector, log.WithField("component", "drift"))

	router := setupRouter(cfg, log, m, healthHandler, webhookHandler, driftHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "environment": cfg.Environment}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
}

// setupRouter configures the HTTP router
func setupRouter(cfg *config.Config, log *logrus.Entry, m *metrics.Metrics, healthHandler *handlers.HealthHandler, webhookHandler *handlers.WebhookHandler, driftHandler *handlers.DriftHandler) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(log.WithField("component", "http")))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://localhost:3001"}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = strings.Split(origins, ",")
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Webhook endpoints are public; the HMAC gate inside the handler is
	// the authentication.
	webhooks := router.Group("/api/v1/webhooks")
	{
		webhooks.POST("/products", webhookHandler.HandleProductUpsert)
		webhooks.POST("/products/delete", webhookHandler.HandleProductDelete)
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/drift/run", driftHandler.Run)
	}

	return router
}
