package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the service. Values come from
// the environment so deployments stay twelve-factor and main stays lean.
type Config struct {
	Addr string

	// PostgresDSN is empty in dev mode; stores fall back to in-memory.
	PostgresDSN string

	Redis RedisConfig

	// KafkaBrokers enables the change-record Kafka sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// Outbox retry tuning for failed change-record appends.
	OutboxBuffer  int
	OutboxBackoff time.Duration
}

// RedisConfig holds connection settings for the notification transport.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables with sane defaults, so
// an empty environment boots a fully in-memory dev instance.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("ATELIER_ADDR", ":8080"),
		PostgresDSN:   os.Getenv("ATELIER_POSTGRES_DSN"),
		KafkaTopic:    envOr("ATELIER_KAFKA_TOPIC", "content.changes"),
		OutboxBuffer:  envInt("ATELIER_OUTBOX_BUFFER", 256),
		OutboxBackoff: envDuration("ATELIER_OUTBOX_BACKOFF", 2*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("ATELIER_REDIS_URL"),
			PoolSize:     envInt("ATELIER_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("ATELIER_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("ATELIER_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("ATELIER_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("ATELIER_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}

	if brokers := os.Getenv("ATELIER_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
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
	if err != nil || n <= 0 {
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
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
