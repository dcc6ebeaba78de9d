package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Source files. Paths ending in .xlsx go through the workbook reader.
	BuildingsPath   string
	TemperaturePath string
	ElectricityPath string
	XLSXSheet       string

	ProjectType string
	CacheSize   int

	// Severity thresholds, three ascending bounds each.
	PerAreaBounds     []float64
	PerResidentBounds []float64

	// Snapshot publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("DATASET_CACHE_SIZE", 8)
	if err != nil {
		return nil, err
	}

	perArea, err := parseBounds("SEVERITY_PER_AREA_BOUNDS", []float64{30, 50, 100})
	if err != nil {
		return nil, err
	}
	perResident, err := parseBounds("SEVERITY_PER_RESIDENT_BOUNDS", []float64{2000, 4000, 8000})
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		BuildingsPath:   os.Getenv("BUILDINGS_PATH"),
		TemperaturePath: os.Getenv("TEMPERATURE_PATH"),
		ElectricityPath: os.Getenv("ELECTRICITY_PATH"),
		XLSXSheet:       os.Getenv("XLSX_SHEET"),

		ProjectType: envOrDefault("PROJECT_TYPE", "studentboliger"),
		CacheSize:   cacheSize,

		PerAreaBounds:     perArea,
		PerResidentBounds: perResident,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "energy-dataset-snapshots"),
	}

	if cfg.BuildingsPath == "" {
		return nil, errors.New("BUILDINGS_PATH is required")
	}
	if cfg.TemperaturePath == "" {
		return nil, errors.New("TEMPERATURE_PATH is required")
	}
	if cfg.ElectricityPath == "" {
		return nil, errors.New("ELECTRICITY_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// parseBounds reads three comma-separated ascending thresholds.
func parseBounds(key string, fallback []float64) ([]float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%s must have exactly three bounds", key)
	}
	bounds := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q is not a number", key, p)
		}
		bounds[i] = v
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return nil, fmt.Errorf("%s must be strictly increasing", key)
		}
	}
	return bounds, nil
}
