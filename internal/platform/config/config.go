// Package config reads process configuration from the environment so main
// stays lean. Every knob has a development-friendly default; production
// deployments override via env.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backend selectors for IDVAULT_STORE.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Server captures HTTP server level configuration. The listener only carries
// the operational surface (health, readiness, metrics).
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// StoreConfig selects the user aggregate backend.
type StoreConfig struct {
	Kind string
}

// RedisConfig carries connection settings for the Redis-backed user store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig carries the DSN shared by the Postgres user store and the
// materialized audit store.
type PostgresConfig struct {
	URL string
}

// AuditConfig configures the audit pipeline: the async publisher buffer and
// the optional Kafka fan-out.
type AuditConfig struct {
	BufferSize   int
	KafkaBrokers []string
	KafkaTopic   string
}

type Config struct {
	Server   Server
	Store    StoreConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Audit    AuditConfig
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envOr("IDVAULT_ADDR", ":8080"),
			ShutdownTimeout: envDurationOr("IDVAULT_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Store: StoreConfig{
			Kind: envOr("IDVAULT_STORE", StoreMemory),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Audit: AuditConfig{
			BufferSize:   envIntOr("AUDIT_BUFFER_SIZE", 256),
			KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:   os.Getenv("AUDIT_KAFKA_TOPIC"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
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

func envDurationOr(key string, fallback time.Duration) time.Duration {
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

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
