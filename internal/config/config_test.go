package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "sleep-analyzer/measurements", cfg.Ingest.SensorTopic)
	assert.Equal(t, "hypnogram:analyze:stream", cfg.Analyze.Stream)
	assert.Equal(t, "sleep:series:", cfg.Analyze.CachePrefix)
	assert.Equal(t, "", cfg.Webhook.URL)
	assert.Contains(t, cfg.Database.DSN(), "dbname=sleep")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("MODEL_FRAME_SIZE_HR", "40")
	t.Setenv("MODEL_QUANTIZATION_ACC", "0.75")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6432, cfg.Database.Port)
	assert.Equal(t, 40, cfg.Model.FrameSizeHR)
	assert.Equal(t, 0.75, cfg.Model.QuantizationACC)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("MODEL_HR_CUTOFF", "eighty")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 80.0, cfg.Model.HRHiPassCutoff)
}

func TestModelConfig_Materialization(t *testing.T) {
	t.Setenv("MODEL_MIN_AWAKE_SEC", "900")

	cfg, err := Load()
	require.NoError(t, err)
	model := cfg.ModelConfig()
	assert.Equal(t, 900.0, model.MinAwakeDurationSec)
	assert.Equal(t, 20, model.FrameSizeHR)
	assert.Equal(t, 0.5, model.HRActivityThreshold, "decision boundaries stay calibrated")
}
