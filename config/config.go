package config

import (
	"math/rand"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the crawler.
type Config struct {
	SearchURL  string
	BaseURL    string
	SearchTerm string

	MaxPages       int // 0 = walk until the directory runs out of pages
	MaxAttempts    int // retry budget for transient browser faults
	RecencyDays    int // stop once a listing is older than this many days
	SessionRetries int // cold-setup attempts for acquiring a browser session

	Headless  bool
	UserAgent string

	// Timing
	PageLoadTimeout    time.Duration
	ElementWaitTimeout time.Duration
	PacingMin          time.Duration
	PacingMax          time.Duration
	BackoffBase        time.Duration
	SessionRetryDelay  time.Duration
	MinNavInterval     time.Duration
	GlobalTimeout      time.Duration

	// Output
	OutDir string

	// PostgreSQL
	DBEnabled  bool
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		SearchURL: getEnv("SEARCH_URL",
			"https://www.nexxt-change.org/DE/Verkaufsangebot/verkaufsangebot_node.html"),
		BaseURL:    getEnv("BASE_URL", "https://www.nexxt-change.org"),
		SearchTerm: getEnv("SEARCH_TERM", ""),

		MaxPages:       getEnvInt("MAX_PAGES", 0),
		MaxAttempts:    getEnvInt("MAX_ATTEMPTS", 3),
		RecencyDays:    getEnvInt("RECENCY_DAYS", 5),
		SessionRetries: getEnvInt("SESSION_RETRIES", 3),

		Headless: getEnvBool("HEADLESS", true),
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",

		PageLoadTimeout:    getEnvDuration("PAGE_LOAD_TIMEOUT", 30*time.Second),
		ElementWaitTimeout: getEnvDuration("ELEMENT_WAIT_TIMEOUT", 10*time.Second),
		PacingMin:          getEnvDuration("PACING_MIN", 1*time.Second),
		PacingMax:          getEnvDuration("PACING_MAX", 3*time.Second),
		BackoffBase:        getEnvDuration("BACKOFF_BASE", 1*time.Second),
		SessionRetryDelay:  getEnvDuration("SESSION_RETRY_DELAY", 5*time.Second),
		MinNavInterval:     getEnvDuration("MIN_NAV_INTERVAL", 1*time.Second),
		GlobalTimeout:      getEnvDuration("GLOBAL_TIMEOUT", 90*time.Minute),

		OutDir: getEnv("OUT_DIR", "."),

		DBEnabled:  getEnvBool("DB_ENABLED", false),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "nexxt"),
		DBPassword: getEnv("DB_PASSWORD", "nexxt"),
		DBName:     getEnv("DB_NAME", "nexxt_scraper"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// RandomDelay returns a pacing delay drawn uniformly from [PacingMin, PacingMax].
func (c Config) RandomDelay() time.Duration {
	if c.PacingMax <= c.PacingMin {
		return c.PacingMin
	}
	return c.PacingMin + time.Duration(rand.Int63n(int64(c.PacingMax-c.PacingMin)))
}

func getEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
