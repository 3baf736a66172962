// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/creek-flow-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Gauge data source.
	Gauges        []domain.Gauge
	USGSTimeout   time.Duration
	USGSCacheSize int

	// Model and observation log.
	ModelPath       string
	LogDBPath       string
	PredictionLabel string

	// Scheduled real-time runs.
	CronSchedule string

	// Kafka prediction publishing (optional).
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// defaultGauges are the four upstream creeks feeding the Sugar Creek model.
var defaultGauges = []domain.Gauge{
	{Name: "Shoal_Creek", SiteID: "03588500"},
	{Name: "Big_Nance_Creek", SiteID: "03586500"},
	{Name: "Limestone_Creek", SiteID: "03576250"},
	{Name: "Swan_Creek", SiteID: "03577225"},
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	usgsTimeout, err := parsePositiveDuration("USGS_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	gauges, err := parseGauges(envOrDefault("GAUGE_SITES", ""))
	if err != nil {
		return nil, err
	}

	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		Gauges:        gauges,
		USGSTimeout:   usgsTimeout,
		USGSCacheSize: parseCacheSize(),

		ModelPath:       envOrDefault("MODEL_PATH", "scpm2.json"),
		LogDBPath:       envOrDefault("LOG_DB_PATH", "data/predictions.db"),
		PredictionLabel: envOrDefault("PREDICTION_LABEL", "Sugar_Creek_Prediction"),

		CronSchedule: envOrDefault("CRON_SCHEDULE", "@hourly"),

		KafkaBrokers: kafkaBrokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "creek-flow-predictions"),
		KafkaEnabled: kafkaEnabled,
	}

	if len(cfg.Gauges) == 0 {
		return nil, errors.New("GAUGE_SITES resolved to an empty gauge set")
	}
	if cfg.ModelPath == "" {
		return nil, errors.New("MODEL_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// parseGauges parses "Name:siteID,Name:siteID" pairs. An empty input selects
// the default gauge set.
func parseGauges(s string) ([]domain.Gauge, error) {
	if strings.TrimSpace(s) == "" {
		return defaultGauges, nil
	}

	var gauges []domain.Gauge
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, site, ok := strings.Cut(pair, ":")
		if !ok || name == "" || site == "" {
			return nil, fmt.Errorf("invalid GAUGE_SITES entry %q, want Name:siteID", pair)
		}
		gauges = append(gauges, domain.Gauge{Name: name, SiteID: site})
	}
	return gauges, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseCacheSize() int {
	if s := os.Getenv("USGS_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 256
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
