package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredPaths(t *testing.T) {
	t.Helper()
	t.Setenv("BUILDINGS_PATH", "data/buildings.csv")
	t.Setenv("TEMPERATURE_PATH", "data/temperature.csv")
	t.Setenv("ELECTRICITY_PATH", "data/electricity.xlsx")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredPaths(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "studentboliger", cfg.ProjectType)
	assert.Equal(t, 8, cfg.CacheSize)
	assert.Equal(t, []float64{30, 50, 100}, cfg.PerAreaBounds)
	assert.Equal(t, []float64{2000, 4000, 8000}, cfg.PerResidentBounds)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "energy-dataset-snapshots", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequiredPaths(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("PROJECT_TYPE", "naeringsbygg")
	t.Setenv("DATASET_CACHE_SIZE", "16")
	t.Setenv("SEVERITY_PER_AREA_BOUNDS", "25, 45, 90")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-snapshots")
	t.Setenv("XLSX_SHEET", "Forbruk")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "naeringsbygg", cfg.ProjectType)
	assert.Equal(t, 16, cfg.CacheSize)
	assert.Equal(t, []float64{25, 45, 90}, cfg.PerAreaBounds)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-snapshots", cfg.KafkaTopic)
	assert.Equal(t, "Forbruk", cfg.XLSXSheet)
}

func TestLoad_MissingPaths(t *testing.T) {
	t.Setenv("TEMPERATURE_PATH", "data/temperature.csv")
	t.Setenv("ELECTRICITY_PATH", "data/electricity.csv")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BUILDINGS_PATH")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad shutdown timeout", key: "SHUTDOWN_TIMEOUT", value: "soon"},
		{name: "negative cache size", key: "DATASET_CACHE_SIZE", value: "-1"},
		{name: "two bounds", key: "SEVERITY_PER_AREA_BOUNDS", value: "30,50"},
		{name: "non-numeric bound", key: "SEVERITY_PER_AREA_BOUNDS", value: "30,x,100"},
		{name: "non-increasing bounds", key: "SEVERITY_PER_RESIDENT_BOUNDS", value: "100,100,200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredPaths(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_KafkaValidation(t *testing.T) {
	setRequiredPaths(t)
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}
