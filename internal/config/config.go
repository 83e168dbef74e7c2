package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/recon"
)

// Config holds all configuration for the reconciliation service.
type Config struct {
	// Server
	Port        string
	Environment string

	// GCP
	GCPProjectID       string
	FirestoreProjectID string

	// Upstream platform
	ShopifyStore         string
	ShopifyAccessToken   string
	ShopifyWebhookSecret string

	// Storefront registry. Explicit list; no collection sniffing.
	Storefronts []string

	// Infrastructure
	RedisURL string
	NATSURL  string

	// Reconciliation
	MarketDefaults       map[string]recon.MarketDefault
	PropagationWorkers   int
	ShippingRateCacheTTL time.Duration
}

// Load loads configuration from the environment, reading a local .env
// file first when present.
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		GCPProjectID:       getEnv("GCP_PROJECT_ID", ""),
		FirestoreProjectID: getEnv("FIRESTORE_PROJECT_ID", ""),

		ShopifyStore:         getEnv("SHOPIFY_STORE", ""),
		ShopifyAccessToken:   getEnv("SHOPIFY_ACCESS_TOKEN", ""),
		ShopifyWebhookSecret: getEnv("SHOPIFY_WEBHOOK_SECRET", ""),

		Storefronts: splitList(getEnv("STOREFRONTS", "")),

		RedisURL: getEnv("REDIS_URL", ""),
		NATSURL:  getEnv("NATS_URL", ""),

		MarketDefaults:       parseMarketDefaults(getEnv("MARKET_DEFAULTS", "")),
		PropagationWorkers:   getEnvAsInt("PROPAGATION_WORKERS", 4),
		ShippingRateCacheTTL: getEnvAsDuration("SHIPPING_RATE_CACHE_TTL", 15*time.Minute),
	}

	if config.FirestoreProjectID == "" {
		config.FirestoreProjectID = config.GCPProjectID
	}
	if len(config.Storefronts) == 0 {
		log.Println("Warning: STOREFRONTS not set, propagation will only reach storefronts recorded on mirror records")
	}
	if config.GCPProjectID == "" {
		log.Println("Warning: GCP_PROJECT_ID not set, secrets management will be disabled")
	}

	return config
}

// parseMarketDefaults decodes the MARKET_DEFAULTS JSON map, e.g.
// {"DE":{"shippingEstimate":"5.90","deliveryEstimateDays":"5-7","currency":"EUR"}}.
func parseMarketDefaults(raw string) map[string]recon.MarketDefault {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var defaults map[string]recon.MarketDefault
	if err := json.Unmarshal([]byte(raw), &defaults); err != nil {
		log.Printf("Warning: invalid MARKET_DEFAULTS, ignoring: %v", err)
		return nil
	}
	return defaults
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
