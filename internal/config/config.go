// Package config loads service settings from an optional YAML file, a .env
// file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"shiptrack/internal/alerts"
	"shiptrack/internal/docstore"
	"shiptrack/internal/store"
)

type Config struct {
	HTTPAddr string `yaml:"httpAddr" json:"httpAddr"`
	LogLevel string `yaml:"logLevel" json:"logLevel"`
	LogJSON  bool   `yaml:"logJSON" json:"logJSON"`

	DatabaseURL string `yaml:"databaseURL" json:"-"`
	DBMigrate   bool   `yaml:"dbMigrate" json:"dbMigrate"`
	RedisURL    string `yaml:"redisURL" json:"-"`

	HistoryPath string `yaml:"historyPath" json:"historyPath"`
	HistoryMax  int    `yaml:"historyMax" json:"historyMax"`

	LocationsFile    string        `yaml:"locationsFile" json:"locationsFile"`
	LocationCacheTTL time.Duration `yaml:"locationCacheTTL" json:"locationCacheTTL"`

	KafkaBrokers        []string `yaml:"kafkaBrokers" json:"kafkaBrokers"`
	KafkaTopicAlerts    string   `yaml:"kafkaTopicAlerts" json:"kafkaTopicAlerts"`
	KafkaTopicShipments string   `yaml:"kafkaTopicShipments" json:"kafkaTopicShipments"`
	KafkaGroup          string   `yaml:"kafkaGroup" json:"kafkaGroup"`

	PolDepartureThresholdHours float64 `yaml:"polDepartureThresholdHours" json:"polDepartureThresholdHours"`
	PodArrivalThresholdHours   float64 `yaml:"podArrivalThresholdHours" json:"podArrivalThresholdHours"`

	AllowOrigins []string `yaml:"allowOrigins" json:"allowOrigins"`
	RateRPS      float64  `yaml:"rateRPS" json:"rateRPS"`
	RateBurst    int      `yaml:"rateBurst" json:"rateBurst"`

	WebhookMaxAttempts int `yaml:"webhookMaxAttempts" json:"webhookMaxAttempts"`

	AuthMode       string `yaml:"authMode" json:"authMode"`
	AuthHMACSecret string `yaml:"authHMACSecret" json:"-"`

	DocStore docstore.Config `yaml:"docstore" json:"docstore"`
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() Config {
	return Config{
		HTTPAddr:                   ":8080",
		LogLevel:                   "info",
		DBMigrate:                  true,
		HistoryMax:                 store.DefaultHistoryMax,
		LocationCacheTTL:           24 * time.Hour,
		KafkaTopicAlerts:           "shipment.alerts",
		KafkaTopicShipments:        "shipment.raw",
		KafkaGroup:                 "shiptrack",
		PolDepartureThresholdHours: alerts.DefaultThresholdHours,
		PodArrivalThresholdHours:   alerts.DefaultThresholdHours,
		WebhookMaxAttempts:         10,
		AuthMode:                   "dev",
	}
}

// Load reads .env (if present), then the YAML file named by path or
// SHIPTRACK_CONFIG, then environment overrides, and validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: .env: %w", err)
	}
	cfg := Defaults()
	if path == "" {
		path = getEnv("SHIPTRACK_CONFIG", "")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if port := getEnv("PORT", ""); port != "" {
		c.HTTPAddr = ":" + port
	}
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogJSON = getEnvBool("LOG_JSON", c.LogJSON)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.DBMigrate = getEnvBool("DB_MIGRATE", c.DBMigrate)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.HistoryPath = getEnv("HISTORY_PATH", c.HistoryPath)
	c.HistoryMax = getEnvInt("HISTORY_MAX", c.HistoryMax)
	c.LocationsFile = getEnv("LOCATIONS_FILE", c.LocationsFile)
	c.LocationCacheTTL = getEnvDuration("LOCATION_CACHE_TTL", c.LocationCacheTTL)
	c.KafkaBrokers = getEnvList("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaTopicAlerts = getEnv("KAFKA_TOPIC_ALERTS", c.KafkaTopicAlerts)
	c.KafkaTopicShipments = getEnv("KAFKA_TOPIC_SHIPMENTS", c.KafkaTopicShipments)
	c.KafkaGroup = getEnv("KAFKA_GROUP", c.KafkaGroup)
	c.PolDepartureThresholdHours = getEnvFloat("ALERT_POL_VD_HOURS", c.PolDepartureThresholdHours)
	c.PodArrivalThresholdHours = getEnvFloat("ALERT_POD_VA_HOURS", c.PodArrivalThresholdHours)
	c.AllowOrigins = getEnvList("ALLOW_ORIGINS", c.AllowOrigins)
	c.RateRPS = getEnvFloat("RATE_RPS", c.RateRPS)
	c.RateBurst = getEnvInt("RATE_BURST", c.RateBurst)
	c.WebhookMaxAttempts = getEnvInt("WEBHOOK_MAX_ATTEMPTS", c.WebhookMaxAttempts)
	c.AuthMode = strings.ToLower(getEnv("AUTH_MODE", c.AuthMode))
	c.AuthHMACSecret = getEnv("AUTH_HMAC_SECRET", c.AuthHMACSecret)
	c.DocStore.URL = getEnv("DOCSTORE_URL", c.DocStore.URL)
	c.DocStore.Database = getEnv("DOCSTORE_DATABASE", c.DocStore.Database)
	c.DocStore.Collection = getEnv("DOCSTORE_COLLECTION", c.DocStore.Collection)
	c.DocStore.Username = getEnv("DOCSTORE_USERNAME", c.DocStore.Username)
	c.DocStore.Password = getEnv("DOCSTORE_PASSWORD", c.DocStore.Password)
}

func (c Config) Validate() error {
	var errs []error
	if c.PolDepartureThresholdHours < 0 || c.PodArrivalThresholdHours < 0 {
		errs = append(errs, errors.New("alert thresholds must not be negative"))
	}
	if c.HistoryMax < 1 {
		errs = append(errs, errors.New("HISTORY_MAX must be at least 1"))
	}
	if c.RateRPS < 0 || c.RateBurst < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	switch c.AuthMode {
	case "dev", "hmac":
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode))
	}
	if c.AuthMode == "hmac" && c.AuthHMACSecret == "" {
		errs = append(errs, errors.New("AUTH_HMAC_SECRET is required in hmac mode"))
	}
	if c.DocStore.Enabled() {
		if err := docstore.CheckURL(c.DocStore.URL); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Thresholds returns the configured alert thresholds.
func (c Config) Thresholds() alerts.Thresholds {
	return alerts.Thresholds{
		POLDepartureHours: c.PolDepartureThresholdHours,
		PODArrivalHours:   c.PodArrivalThresholdHours,
	}
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
