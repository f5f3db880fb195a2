package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SHIPTRACK_CONFIG", "PORT", "HTTP_ADDR", "HISTORY_MAX", "DB_MIGRATE", "KAFKA_TOPIC_ALERTS",
		"ALERT_POL_VD_HOURS", "ALERT_POD_VA_HOURS", "LOCATION_CACHE_TTL", "AUTH_MODE", "DOCSTORE_URL", "RATE_RPS"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15, cfg.HistoryMax)
	assert.Equal(t, 24.0, cfg.PolDepartureThresholdHours)
	assert.Equal(t, "shipment.alerts", cfg.KafkaTopicAlerts)
	assert.Equal(t, 24*time.Hour, cfg.LocationCacheTTL)
	assert.True(t, cfg.DBMigrate)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shiptrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
httpAddr: ":9000"
historyMax: 5
locationCacheTTL: 2h
polDepartureThresholdHours: 12
kafkaBrokers: [a:9092]
docstore:
  url: https://data.example.com
  database: tracking
`), 0o644))

	clearEnv(t)
	t.Setenv("PORT", "7070")
	t.Setenv("ALERT_POD_VA_HOURS", "6.5")
	t.Setenv("KAFKA_BROKERS", " b:9092, ,c:9092 ")
	t.Setenv("DB_MIGRATE", "false")
	t.Setenv("HISTORY_MAX", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, 5, cfg.HistoryMax)
	assert.Equal(t, 2*time.Hour, cfg.LocationCacheTTL)
	assert.Equal(t, 12.0, cfg.Thresholds().POLDepartureHours)
	assert.Equal(t, 6.5, cfg.Thresholds().PODArrivalHours)
	assert.Equal(t, []string{"b:9092", "c:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.DBMigrate)
	assert.Equal(t, "tracking", cfg.DocStore.Database)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"negative threshold", func(c *Config) { c.PodArrivalThresholdHours = -1 }, false},
		{"history max zero", func(c *Config) { c.HistoryMax = 0 }, false},
		{"plain http docstore", func(c *Config) { c.DocStore.URL = "http://db.example.com" }, false},
		{"localhost docstore", func(c *Config) { c.DocStore.URL = "http://localhost:8081" }, true},
		{"hmac without secret", func(c *Config) { c.AuthMode = "hmac" }, false},
		{"unknown auth", func(c *Config) { c.AuthMode = "jwks" }, false},
		{"negative rate", func(c *Config) { c.RateRPS = -2 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
