// Package config loads server configuration from the environment, with a
// .env file picked up in development when present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config carries every tunable the server reads at startup.
type Config struct {
	ListenAddr string

	// DatabaseURL selects the durable store; empty runs fully in memory.
	DatabaseURL string

	// RedisAddr enables the action-history queue; empty disables it.
	RedisAddr     string
	RedisPassword string

	JWTSecret string
	TokenTTL  time.Duration

	// CacheTTL bounds how long a session read may be served from cache.
	CacheTTL time.Duration
	// SessionMaxAge is how long an idle lobby survives before the reaper
	// collects it.
	SessionMaxAge time.Duration
	ReapInterval  time.Duration
}

// Load reads configuration from the environment. A missing .env file is not
// an error; explicit environment variables always win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("config: could not load .env: %v", err)
	}

	return Config{
		ListenAddr:    envStr("LISTEN_ADDR", ":8080"),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		JWTSecret:     envStr("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:      envDuration("TOKEN_TTL", 24*time.Hour),
		CacheTTL:      envDuration("CACHE_TTL", 30*time.Second),
		SessionMaxAge: envDuration("SESSION_MAX_AGE", 2*time.Hour),
		ReapInterval:  envDuration("REAP_INTERVAL", 5*time.Minute),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warnf("config: cannot parse %s=%q, using default %s", key, v, def)
	return def
}
