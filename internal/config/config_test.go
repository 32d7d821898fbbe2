package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 72, cfg.DefaultWindowHours)
	assert.Equal(t, 168, cfg.MaxWindowHours)
	assert.Equal(t, 60*time.Second, cfg.CacheTTL)
	assert.Equal(t, 200, cfg.CacheMaxEntries)

	assert.False(t, cfg.EnableReverseGeocode)
	assert.Equal(t, 5, cfg.GeocodePrecision)
	assert.Equal(t, 500, cfg.GeocodeCacheSize)
	assert.Equal(t, 25, cfg.GeocodeMaxPerBatch)
	assert.Equal(t, 1100*time.Millisecond, cfg.GeocodeMinInterval)
	assert.Equal(t, 10*time.Second, cfg.GeocodeTimeout)
	assert.NotEmpty(t, cfg.GeocodeUserAgent)

	assert.Empty(t, cfg.WebhookURL)
	assert.Equal(t, "Redding Crime Watch", cfg.WebhookUsername)
	assert.Equal(t, 10*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, 10*time.Minute, cfg.NotifyInterval)
	assert.Equal(t, 10, cfg.NotifyMaxItems)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_WINDOW_HOURS", "24")
	t.Setenv("MAX_WINDOW_HOURS", "96")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("ENABLE_REVERSE_GEOCODE", "true")
	t.Setenv("GEOCODE_MIN_INTERVAL", "500ms")
	t.Setenv("WEBHOOK_URL", "https://discord.test/webhook")
	t.Setenv("NOTIFY_MAX_ITEMS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 24, cfg.DefaultWindowHours)
	assert.Equal(t, 96, cfg.MaxWindowHours)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.EnableReverseGeocode)
	assert.Equal(t, 500*time.Millisecond, cfg.GeocodeMinInterval)
	assert.Equal(t, "https://discord.test/webhook", cfg.WebhookURL)
	assert.Equal(t, 3, cfg.NotifyMaxItems)
}

func TestLoad_UnparseableIntFallsBackToDefault(t *testing.T) {
	t.Setenv("CACHE_MAX_ENTRIES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.CacheMaxEntries)
}

func TestLoad_InvalidDurationIsAnError(t *testing.T) {
	t.Setenv("CACHE_TTL", "sixty seconds")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestLoad_NonPositiveDurationIsAnError(t *testing.T) {
	t.Setenv("GEOCODE_MIN_INTERVAL", "-1s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEOCODE_MIN_INTERVAL")
}

func TestLoad_DefaultWindowMustFitMax(t *testing.T) {
	t.Setenv("DEFAULT_WINDOW_HOURS", "200")
	t.Setenv("MAX_WINDOW_HOURS", "168")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_WINDOW_HOURS")
}
