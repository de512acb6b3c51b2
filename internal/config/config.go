package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"sleep-analyzer/internal/hypnogram"
)

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// DSN renders the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig holds the broker connection settings.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// Config is the full service configuration, loaded from the environment.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	Ingest struct {
		SensorTopic string // MQTT topic carrying wearable measurement batches
	}

	Analyze struct {
		Stream        string // Redis stream of analyze requests
		ConsumerGroup string
		ConsumerName  string
		CachePrefix   string // realtime cache key prefix
		CacheTTL      time.Duration
	}

	Webhook struct {
		URL string // empty disables notifications
	}

	// Model holds the hypnogram pipeline parameters. Changing any of them
	// requires a rescale-all run to rebuild the persisted caches.
	Model struct {
		FrameSizeHR               int
		FrameSizeACC              int
		QuantizationHR            float64
		QuantizationACC           float64
		MinSignificantIntervalSec float64
		MinAwakeDurationSec       float64
		HRHiPassCutoff            float64
		ACCHiPassCutoff           float64
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from environment variables, falling back to
// defaults suitable for local development.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "sleep")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "sleep-analyzer")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.Ingest.SensorTopic = getEnv("SENSOR_TOPIC", "sleep-analyzer/measurements")

	cfg.Analyze.Stream = getEnv("ANALYZE_STREAM", "hypnogram:analyze:stream")
	cfg.Analyze.ConsumerGroup = getEnv("CONSUMER_GROUP", "sleep-analyzer-group")
	cfg.Analyze.ConsumerName = getEnv("CONSUMER_NAME", "sleep-analyzer-1")
	cfg.Analyze.CachePrefix = getEnv("CACHE_PREFIX", "sleep:series:")
	cfg.Analyze.CacheTTL = time.Duration(getEnvInt("CACHE_TTL", 3600)) * time.Second

	cfg.Webhook.URL = getEnv("WEBHOOK_URL", "")

	cfg.Model.FrameSizeHR = getEnvInt("MODEL_FRAME_SIZE_HR", hypnogram.DefaultFrameSizeHR)
	cfg.Model.FrameSizeACC = getEnvInt("MODEL_FRAME_SIZE_ACC", hypnogram.DefaultFrameSizeACC)
	cfg.Model.QuantizationHR = getEnvFloat("MODEL_QUANTIZATION_HR", hypnogram.DefaultQuantizationHR)
	cfg.Model.QuantizationACC = getEnvFloat("MODEL_QUANTIZATION_ACC", hypnogram.DefaultQuantizationACC)
	cfg.Model.MinSignificantIntervalSec = getEnvFloat("MODEL_MIN_SIGNIFICANT_SEC", hypnogram.DefaultMinSignificantIntervalSec)
	cfg.Model.MinAwakeDurationSec = getEnvFloat("MODEL_MIN_AWAKE_SEC", hypnogram.DefaultMinAwakeDurationSec)
	cfg.Model.HRHiPassCutoff = getEnvFloat("MODEL_HR_CUTOFF", hypnogram.DefaultHRHiPassCutoff)
	cfg.Model.ACCHiPassCutoff = getEnvFloat("MODEL_ACC_CUTOFF", hypnogram.DefaultACCHiPassCutoff)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// ModelConfig materializes the pipeline parameters as an immutable config.
// The classifier decision boundaries stay at their calibrated defaults.
func (c *Config) ModelConfig() hypnogram.ModelConfig {
	model := hypnogram.DefaultModelConfig()
	model.FrameSizeHR = c.Model.FrameSizeHR
	model.FrameSizeACC = c.Model.FrameSizeACC
	model.QuantizationHR = c.Model.QuantizationHR
	model.QuantizationACC = c.Model.QuantizationACC
	model.MinSignificantIntervalSec = c.Model.MinSignificantIntervalSec
	model.MinAwakeDurationSec = c.Model.MinAwakeDurationSec
	model.HRHiPassCutoff = c.Model.HRHiPassCutoff
	model.ACCHiPassCutoff = c.Model.ACCHiPassCutoff
	return model
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
