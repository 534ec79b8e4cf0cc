package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string

	UpstreamBaseURL string
	UpstreamTimeout time.Duration

	SessionCookieName string
	SessionSecret     string
	SessionTTL        time.Duration

	LicenseFile          string
	LicenseRetryInterval time.Duration

	Redis RedisConfig
}

// RedisConfig holds connection settings for the session store. An empty URL
// means sessions are kept in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        envString("PLANBRIDGE_ADDR", ":8080"),
		Environment: envString("PLANBRIDGE_ENV", "development"),

		UpstreamBaseURL: envString("UPSTREAM_BASE_URL", "http://localhost:9000"),
		UpstreamTimeout: envDuration("UPSTREAM_TIMEOUT", 30*time.Second),

		SessionCookieName: envString("SESSION_COOKIE_NAME", "planbridge_session"),
		SessionSecret:     envString("SESSION_SECRET", "dev-secret-change-in-production"),
		SessionTTL:        envDuration("SESSION_TTL", 24*time.Hour),

		LicenseFile:          os.Getenv("LICENSE_FILE"),
		LicenseRetryInterval: envDuration("LICENSE_RETRY_INTERVAL", time.Minute),

		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

// Production reports whether the process runs with production settings.
// Secure cookie flags key off this.
func (s Server) Production() bool {
	return s.Environment == "production"
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
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

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
