package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BackendURL     string
	BackendTimeout time.Duration

	ConsolePort string
	LogLevel    string

	PollInterval   time.Duration
	PollJitter     time.Duration
	StaleAfter     time.Duration
	DecisionsLimit int

	RequiredEpis    []string
	DefaultLocation string
	DisplayTimezone string

	NATSURL              string
	NATSDecisionsSubject string

	JournalDSN string

	RateLimitRPS   float64
	RateLimitBurst int

	RetryMaxAttempts        int
	RetryInitialBackoff     time.Duration
	RetryMaxBackoff         time.Duration
	RetryMultiplier         float64
	BreakerEnabled          bool
	BreakerMinRequests      int
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls int
}

// LoadDotEnv reads an optional .env file. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func Load() Config {
	pollInterval := mustEnvDuration("POLL_INTERVAL", 5*time.Second)
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	return Config{
		BackendURL:     strings.TrimRight(mustEnv("BACKEND_URL", "http://localhost:8001"), "/"),
		BackendTimeout: mustEnvDuration("BACKEND_TIMEOUT", 10*time.Second),

		ConsolePort: mustEnv("CONSOLE_PORT", "8090"),
		LogLevel:    mustEnv("LOG_LEVEL", "info"),

		PollInterval:   pollInterval,
		PollJitter:     mustEnvDuration("POLL_JITTER", 0),
		StaleAfter:     mustEnvDuration("STALE_AFTER", 3*pollInterval),
		DecisionsLimit: mustEnvInt("DECISIONS_LIMIT", 10),

		RequiredEpis:    mustEnvList("REQUIRED_EPIS", []string{"helmet"}),
		DefaultLocation: mustEnv("DEFAULT_LOCATION", "Entrada Principal"),
		DisplayTimezone: mustEnv("DISPLAY_TIMEZONE", "Local"),

		NATSURL:              mustEnv("NATS_URL", ""),
		NATSDecisionsSubject: mustEnv("NATS_DECISIONS_SUBJECT", "epi.decisions"),

		JournalDSN: mustEnv("JOURNAL_DSN", ""),

		RateLimitRPS:   mustEnvFloat("CONSOLE_RATE_LIMIT_RPS", 20),
		RateLimitBurst: mustEnvInt("CONSOLE_RATE_LIMIT_BURST", 40),

		RetryMaxAttempts:        mustEnvInt("BACKEND_RETRY_MAX_ATTEMPTS", 2),
		RetryInitialBackoff:     mustEnvDuration("BACKEND_RETRY_INITIAL_BACKOFF", 200*time.Millisecond),
		RetryMaxBackoff:         mustEnvDuration("BACKEND_RETRY_MAX_BACKOFF", time.Second),
		RetryMultiplier:         mustEnvFloat("BACKEND_RETRY_MULTIPLIER", 2),
		BreakerEnabled:          mustEnvBool("BACKEND_BREAKER_ENABLED", true),
		BreakerMinRequests:      mustEnvInt("BACKEND_BREAKER_MIN_REQUESTS", 5),
		BreakerFailureRatio:     mustEnvFloat("BACKEND_BREAKER_FAILURE_RATIO", 0.6),
		BreakerOpenTimeout:      mustEnvDuration("BACKEND_BREAKER_OPEN_TIMEOUT", 15*time.Second),
		BreakerHalfOpenMaxCalls: mustEnvInt("BACKEND_BREAKER_HALF_OPEN_MAX_CALLS", 1),
	}
}

// Location resolves DisplayTimezone, falling back to the host zone.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.DisplayTimezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
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

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
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

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
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

func mustEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
