package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Role is fixed at startup and never renegotiated. It gates which
// endpoints an instance is allowed to serve.
type Role string

const (
	RoleStandalone Role = "standalone"
	RoleLeader     Role = "leader"
	RoleFollower   Role = "follower"
)

// StoreKind selects the ledger backend.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StoreRedis    StoreKind = "redis"
	StorePostgres StoreKind = "postgres"
)

type Config struct {
	Port    int
	Role    Role
	PeerURL string

	DefaultProcessorURL  string
	FallbackProcessorURL string

	Store        StoreKind
	RedisAddress string
	PostgresDSN  string

	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
	BatchInterval       time.Duration
	BatchSize           int
	SubmitTimeout       time.Duration
	HealthPushTimeout   time.Duration
	SummaryPullTimeout  time.Duration

	LogLevel slog.Level
}

func FromEnv() (Config, error) {
	cfg := Config{
		Port:                 getEnvAsInt("PORT", 9999),
		Role:                 Role(getEnvAsString("INSTANCE_ROLE", string(RoleStandalone))),
		PeerURL:              getEnvAsString("PEER_URL", ""),
		DefaultProcessorURL:  getEnvAsString("PAYMENT_PROCESSOR_URL_DEFAULT", "http://localhost:8001"),
		FallbackProcessorURL: getEnvAsString("PAYMENT_PROCESSOR_URL_FALLBACK", "http://localhost:8002"),
		Store:                StoreKind(getEnvAsString("STORE", string(StoreMemory))),
		RedisAddress:         getEnvAsString("REDIS_ADDRESS", "localhost:6379"),
		PostgresDSN:          getEnvAsString("POSTGRES_DSN", ""),
		HealthCheckInterval:  getEnvAsMillis("HEALTH_CHECK_INTERVAL_MS", 5000),
		HealthCheckTimeout:   getEnvAsMillis("HEALTH_CHECK_TIMEOUT_MS", 2000),
		BatchInterval:        getEnvAsMillis("BATCH_INTERVAL_MS", 100),
		BatchSize:            getEnvAsInt("BATCH_SIZE", 10),
		SubmitTimeout:        getEnvAsMillis("SUBMIT_TIMEOUT_MS", 10000),
		HealthPushTimeout:    getEnvAsMillis("HEALTH_PUSH_TIMEOUT_MS", 500),
		SummaryPullTimeout:   getEnvAsMillis("SUMMARY_PULL_TIMEOUT_MS", 1500),
		LogLevel:             parseLogLevel(getEnvAsString("LOG_LEVEL", "ERROR")),
	}

	switch cfg.Role {
	case RoleStandalone, RoleLeader, RoleFollower:
	default:
		return Config{}, fmt.Errorf("invalid INSTANCE_ROLE %q", cfg.Role)
	}

	if cfg.Role == RoleLeader && cfg.PeerURL == "" {
		return Config{}, fmt.Errorf("PEER_URL is required for the leader role")
	}

	switch cfg.Store {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			return Config{}, fmt.Errorf("POSTGRES_DSN is required for STORE=postgres")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORE %q", cfg.Store)
	}

	if cfg.BatchSize < 1 {
		return Config{}, fmt.Errorf("BATCH_SIZE must be at least 1, got %d", cfg.BatchSize)
	}

	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func getEnvAsString(key string, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}

	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getEnvAsMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue)) * time.Millisecond
}
