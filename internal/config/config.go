package config

import (
	"os"
	"strconv"
	"time"
)

// Settings holds the immutable runtime configuration, resolved once at
// startup from the environment.
type Settings struct {
	RedisAddr      string
	ConfigPath     string
	Port           string
	APISecret      string
	ConsoleUser    string
	RequireWorkers bool
	PollInterval   time.Duration
	PendingTimeout time.Duration
	PoolSize       int
}

// Load resolves settings from the environment, applying defaults for
// anything unset.
func Load() Settings {
	return Settings{
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		ConfigPath:     getenv("CONFIG_PATH", "config.yml"),
		Port:           getenv("PORT", "8000"),
		APISecret:      os.Getenv("API_SECRET"),
		ConsoleUser:    getenv("CONSOLE_USER", "console"),
		RequireWorkers: getbool("REQUIRE_WORKERS", false),
		PollInterval:   getseconds("POLL_INTERVAL_SECONDS", 2),
		PendingTimeout: getseconds("PENDING_TIMEOUT_SECONDS", 300),
		PoolSize:       getint("WORKER_POOL_SIZE", 10),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getseconds(key string, fallback int) time.Duration {
	return time.Duration(getint(key, fallback)) * time.Second
}
