package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the FeedPulse server and worker.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Sentiment SentimentConfig
	Queue     QueueConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// SentimentConfig selects and tunes the external classifier. Timeout caps
// the transport; AnalysisBudget is the shorter window the orchestrator waits
// before falling back to the heuristic.
type SentimentConfig struct {
	Provider       string
	APIURL         string
	APIToken       string
	Timeout        time.Duration
	AnalysisBudget time.Duration
}

type QueueConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Concurrency int
}

var validProviders = map[string]bool{
	"http": true,
	"mock": true,
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value
// is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("FEEDPULSE_PORT", 8080),
			Env:             envString("FEEDPULSE_ENV", "development"),
			RateLimitPerMin: envInt("FEEDPULSE_RATE_LIMIT_PER_MIN", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Sentiment: SentimentConfig{
			Provider:       envString("SENTIMENT_PROVIDER", "http"),
			APIURL:         os.Getenv("SENTIMENT_API_URL"),
			APIToken:       os.Getenv("SENTIMENT_API_TOKEN"),
			Timeout:        envDurationSecs("SENTIMENT_TIMEOUT_SECS", 30*time.Second),
			AnalysisBudget: envDurationSecs("ANALYSIS_BUDGET_SECS", 10*time.Second),
		},
		Queue: QueueConfig{
			MaxAttempts: envInt("QUEUE_MAX_ATTEMPTS", 3),
			BaseDelay:   envDurationSecs("QUEUE_BASE_DELAY_SECS", time.Second),
			Concurrency: envInt("QUEUE_CONCURRENCY", 4),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validProviders[c.Sentiment.Provider] {
		return fmt.Errorf("SENTIMENT_PROVIDER must be one of http, mock; got %q", c.Sentiment.Provider)
	}
	if c.Sentiment.Provider == "http" {
		if c.Sentiment.APIURL == "" {
			return fmt.Errorf("SENTIMENT_API_URL is required when SENTIMENT_PROVIDER is http")
		}
		if !strings.HasPrefix(c.Sentiment.APIURL, "http://") && !strings.HasPrefix(c.Sentiment.APIURL, "https://") {
			return fmt.Errorf("SENTIMENT_API_URL must start with http:// or https://, got %q", c.Sentiment.APIURL)
		}
	}

	if c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("QUEUE_MAX_ATTEMPTS must be at least 1, got %d", c.Queue.MaxAttempts)
	}
	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("QUEUE_CONCURRENCY must be at least 1, got %d", c.Queue.Concurrency)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
