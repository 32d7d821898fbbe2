package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all service settings, populated from the environment.
type AppConfig struct {
	Port string

	// Upstream incident portal.
	UpstreamTimeout time.Duration

	// Request window bounds (hours).
	DefaultWindowHours int
	MaxWindowHours     int

	// Response cache.
	CacheTTL        time.Duration
	CacheMaxEntries int

	// Reverse geocoding.
	EnableReverseGeocode bool
	GeocodePrecision     int
	GeocodeCacheSize     int
	GeocodeMaxPerBatch   int
	GeocodeMinInterval   time.Duration
	GeocodeTimeout       time.Duration
	GeocodeUserAgent     string

	// Notifier. Empty WebhookURL disables it.
	WebhookURL      string
	WebhookUsername string
	WebhookTimeout  time.Duration
	NotifyInterval  time.Duration
	NotifyMaxItems  int
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		Port: getenvDefault("PORT", "8080"),

		DefaultWindowHours: getenvInt("DEFAULT_WINDOW_HOURS", 72),
		MaxWindowHours:     getenvInt("MAX_WINDOW_HOURS", 168),

		CacheMaxEntries: getenvInt("CACHE_MAX_ENTRIES", 200),

		EnableReverseGeocode: getenvBool("ENABLE_REVERSE_GEOCODE", false),
		GeocodePrecision:     getenvInt("GEOCODE_PRECISION", 5),
		GeocodeCacheSize:     getenvInt("GEOCODE_CACHE_SIZE", 500),
		GeocodeMaxPerBatch:   getenvInt("GEOCODE_MAX_PER_BATCH", 25),
		GeocodeUserAgent: getenvDefault("GEOCODE_USER_AGENT",
			"cityprotect-api/1.0 (contact: admin@stonybrain.example)"),

		WebhookURL:      os.Getenv("WEBHOOK_URL"),
		WebhookUsername: getenvDefault("WEBHOOK_USERNAME", "Redding Crime Watch"),
		NotifyMaxItems:  getenvInt("NOTIFY_MAX_ITEMS", 10),
	}

	var err error
	if cfg.UpstreamTimeout, err = getenvDuration("UPSTREAM_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "60s"); err != nil {
		return nil, err
	}
	if cfg.GeocodeMinInterval, err = getenvDuration("GEOCODE_MIN_INTERVAL", "1100ms"); err != nil {
		return nil, err
	}
	if cfg.GeocodeTimeout, err = getenvDuration("GEOCODE_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.WebhookTimeout, err = getenvDuration("WEBHOOK_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.NotifyInterval, err = getenvDuration("NOTIFY_INTERVAL", "10m"); err != nil {
		return nil, err
	}

	if cfg.DefaultWindowHours < 1 || cfg.DefaultWindowHours > cfg.MaxWindowHours {
		return nil, fmt.Errorf("DEFAULT_WINDOW_HOURS must be within 1..MAX_WINDOW_HOURS")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
