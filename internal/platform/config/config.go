package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all runtime configuration so main stays lean.
type Config struct {
	Server       ServerConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Storage      StorageConfig
	Draft        DraftConfig
	Kafka        KafkaConfig
	ContentStore ContentStoreConfig
	Verification VerificationConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string
	JWTSigningKey   string
	ShutdownTimeout time.Duration
}

// PostgresConfig configures the relational store for drafts, finalized
// registrations, and the audit outbox.
type PostgresConfig struct {
	URL string
}

// RedisConfig configures the Redis client used for verification challenges
// and the submission single-flight guard.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StorageConfig configures the signed-URL object store.
type StorageConfig struct {
	RootDir    string
	BaseURL    string
	SigningKey string
	URLTTL     time.Duration
}

// DraftConfig tunes draft persistence behavior.
type DraftConfig struct {
	AutosaveDebounce time.Duration
}

// KafkaConfig configures the audit event pipeline. Empty brokers disable
// Kafka publishing; events then stay in the outbox (or memory store in dev).
type KafkaConfig struct {
	Brokers          []string
	TopicPrefix      string
	OutboxPollPeriod time.Duration
}

// ContentStoreConfig points at the external content-addressed blob store
// used only by the submission pipeline.
type ContentStoreConfig struct {
	BaseURL string
	Timeout time.Duration
}

// VerificationConfig tunes the mock OTP/biometric providers.
type VerificationConfig struct {
	ChallengeTTL time.Duration
}

// FromEnv builds a Config from DEEDBLOCK_* environment variables, applying
// development defaults for anything unset.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:            envOr("DEEDBLOCK_ADDR", ":8080"),
			JWTSigningKey:   envOr("DEEDBLOCK_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			ShutdownTimeout: envDuration("DEEDBLOCK_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("DEEDBLOCK_POSTGRES_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("DEEDBLOCK_REDIS_URL"),
			PoolSize:     envInt("DEEDBLOCK_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("DEEDBLOCK_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("DEEDBLOCK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("DEEDBLOCK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("DEEDBLOCK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Storage: StorageConfig{
			RootDir:    envOr("DEEDBLOCK_STORAGE_ROOT", "./data/objects"),
			BaseURL:    envOr("DEEDBLOCK_STORAGE_BASE_URL", "http://localhost:8080/v1/objects"),
			SigningKey: envOr("DEEDBLOCK_STORAGE_SIGNING_KEY", "dev-storage-signing-key"),
			URLTTL:     envDuration("DEEDBLOCK_STORAGE_URL_TTL", 7*24*time.Hour),
		},
		Draft: DraftConfig{
			AutosaveDebounce: envDuration("DEEDBLOCK_AUTOSAVE_DEBOUNCE", 500*time.Millisecond),
		},
		Kafka: KafkaConfig{
			Brokers:          envList("DEEDBLOCK_KAFKA_BROKERS"),
			TopicPrefix:      envOr("DEEDBLOCK_KAFKA_TOPIC_PREFIX", "deedblock.audit"),
			OutboxPollPeriod: envDuration("DEEDBLOCK_OUTBOX_POLL_PERIOD", 2*time.Second),
		},
		ContentStore: ContentStoreConfig{
			BaseURL: os.Getenv("DEEDBLOCK_CONTENT_STORE_URL"),
			Timeout: envDuration("DEEDBLOCK_CONTENT_STORE_TIMEOUT", 30*time.Second),
		},
		Verification: VerificationConfig{
			ChallengeTTL: envDuration("DEEDBLOCK_VERIFICATION_CHALLENGE_TTL", 5*time.Minute),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
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
