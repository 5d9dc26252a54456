package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// NATS configuration
	NatsURL            string
	NatsRequestSubject string
	NatsEventsSubject  string // prefix; events publish to <prefix>.<session_id>
	NatsTimeout        time.Duration

	// Provider configuration
	ProviderBackend string
	StrictMode      bool
	PaceDelay       time.Duration

	// Redis configuration
	RedisURL   string
	SessionTTL time.Duration

	// Service configuration
	ServiceName string
}

func Load() *Config {
	return &Config{
		// NATS settings
		NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		NatsRequestSubject: getEnv("NATS_REQUEST_SUBJECT", "negotiate.dialogue"),
		NatsEventsSubject:  getEnv("NATS_EVENTS_SUBJECT", "negotiate.events"),
		NatsTimeout:        getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		// Provider settings
		ProviderBackend: getEnv("PROVIDER_BACKEND", "local"),
		StrictMode:      getBoolEnv("STRICT_MODE", false),
		PaceDelay:       getDurationEnv("PACE_DELAY", 0),

		// Redis settings
		RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL: getDurationEnv("SESSION_TTL", 30*time.Minute),

		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "diplomat-intent"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
