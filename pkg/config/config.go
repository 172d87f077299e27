package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string
	LogLevel   string

	// AllowedDomains is the domain-suffix allow-list for URL fetches. Empty
	// means allow all, which is a development convenience: production
	// deployments must set ALLOWED_DOMAINS explicitly.
	AllowedDomains []string

	CacheCapacity int
	CacheTTL      time.Duration

	PageLoadTimeout time.Duration
	SelectorWait    time.Duration
	SettleDelay     time.Duration

	// RedisAddr, when set, switches the snapshot cache to the Redis backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// DatabaseURL, when set, enables the PostgreSQL fetch-audit log.
	DatabaseURL string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is applied first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		AllowedDomains:  splitDomains(getEnv("ALLOWED_DOMAINS", "")),
		CacheCapacity:   getEnvAsInt("CACHE_CAPACITY", 100),
		CacheTTL:        getEnvAsDuration("CACHE_TTL_MINUTES", 30) * time.Minute,
		PageLoadTimeout: getEnvAsDuration("PAGE_LOAD_TIMEOUT_SECONDS", 30) * time.Second,
		SelectorWait:    getEnvAsDuration("SELECTOR_WAIT_SECONDS", 5) * time.Second,
		SettleDelay:     getEnvAsDuration("SETTLE_DELAY_SECONDS", 2) * time.Second,
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
	}
}

func splitDomains(raw string) []string {
	var domains []string
	for _, d := range strings.Split(raw, ",") {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback))
}
