package config

import (
	"crypto/sha256"
	"encoding/base64"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/pbkdf2"
)

// Config captures everything the server needs at startup. Values come from
// the environment with development defaults so main stays lean.
type Config struct {
	Addr string

	// CodeSigningKey signs check-in code descriptors (HS256).
	CodeSigningKey string
	CodeIssuer     string

	CalibrationValidity time.Duration

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
}

// RedisConfig controls the shared Redis client. An empty URL disables Redis
// and the server falls back to in-memory stores.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds the DSN for durable stores. Empty means memory-only.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig configures the attendance event publisher. No brokers means
// events stay local (audit store only).
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables. A .env file in the
// working directory is honored when present.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:                envOr("PRESENCE_ADDR", ":8080"),
		CodeIssuer:          envOr("PRESENCE_CODE_ISSUER", "presence-gateway"),
		CalibrationValidity: envDuration("PRESENCE_CALIBRATION_VALIDITY", 6*time.Hour),
		Redis: RedisConfig{
			URL:          os.Getenv("PRESENCE_REDIS_URL"),
			PoolSize:     envInt("PRESENCE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("PRESENCE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("PRESENCE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("PRESENCE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("PRESENCE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{DSN: os.Getenv("PRESENCE_POSTGRES_DSN")},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("PRESENCE_KAFKA_BROKERS")),
			Topic:   envOr("PRESENCE_KAFKA_TOPIC", "attendance.outcomes"),
		},
	}

	cfg.CodeSigningKey = signingKeyFromEnv()
	return cfg
}

// signingKeyFromEnv prefers an explicit key; otherwise derives one from a
// passphrase so deployments can rotate a human-manageable secret. The dev
// default must be overridden in production.
func signingKeyFromEnv() string {
	if key := os.Getenv("PRESENCE_CODE_SIGNING_KEY"); key != "" {
		return key
	}
	passphrase := os.Getenv("PRESENCE_CODE_SIGNING_PASSPHRASE")
	if passphrase == "" {
		return "dev-secret-key-change-in-production"
	}
	salt := envOr("PRESENCE_CODE_SIGNING_SALT", "presence-gateway")
	derived := pbkdf2.Key([]byte(passphrase), []byte(salt), 4096, 32, sha256.New)
	return base64.RawURLEncoding.EncodeToString(derived)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitNonEmpty(csv string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if part := csv[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
