// config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

type contextKey string

// UserIDKey is the context key under which the auth middleware stores the
// user id extracted from the JWT.
const UserIDKey contextKey = "user_id"

// Config holds all application configuration.
type Config struct {
	ServerPort  string
	DatabaseDSN string
	JwtSecret   string

	// Client side
	HubURL string // ws(s)://host/ws, explicit override

	// Realtime parameters
	PingInterval     time.Duration // client heartbeat ping
	SyncInterval     time.Duration // periodic resend of the current estado
	ReconnectBase    time.Duration // exponential backoff base
	ReconnectCeiling time.Duration // backoff ceiling
	StaleTimeout     time.Duration // worker without updates is considered dead
	SweepInterval    time.Duration // registry sweep period

	// Marker-side inactivity
	InactivityWarning time.Duration
	InactivityMax     time.Duration
}

// NewConfig creates and returns a new Config instance from the environment.
func NewConfig() *Config {
	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "3001"),
		DatabaseDSN: getEnv("DATABASE_DSN", "postgres://localhost/presencia?sslmode=disable"),
		JwtSecret:   getEnv("JWT_SECRET", "dev-secret-change-me"),

		HubURL: getEnv("WS_URL", "ws://localhost:3001/ws"),

		PingInterval:     getEnvDuration("WS_PING_INTERVAL", 25*time.Second),
		SyncInterval:     getEnvDuration("WS_SYNC_INTERVAL", 30*time.Second),
		ReconnectBase:    getEnvDuration("RECONNECT_BASE", 3*time.Second),
		ReconnectCeiling: getEnvDuration("RECONNECT_MAX", 30*time.Second),
		StaleTimeout:     getEnvDuration("STALE_TIMEOUT", 30*time.Minute),
		SweepInterval:    getEnvDuration("SWEEP_INTERVAL", time.Minute),

		InactivityWarning: time.Duration(getEnvInt("INACTIVITY_WARNING_MIN", 55)) * time.Minute,
		InactivityMax:     time.Duration(getEnvInt("INACTIVITY_MAX_MIN", 60)) * time.Minute,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := time.ParseDuration(value); err == nil {
			return v
		}
	}
	return fallback
}
