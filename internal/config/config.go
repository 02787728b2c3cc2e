package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Ingest    IngestConfig
	Providers ProvidersConfig
	LogLevel  string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the Redis connection used for provider cycle locks
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// IngestConfig holds scheduling and watermark behaviour knobs
type IngestConfig struct {
	Watchlist        []string
	Interval         time.Duration
	SkewAllowance    time.Duration
	FirstRunLookback time.Duration
	OverlapBuffer    time.Duration
}

// ProvidersConfig holds per-provider credentials and enable flags
type ProvidersConfig struct {
	Finnhub FinnhubConfig
	Polygon PolygonConfig
	Reddit  RedditConfig
}

// FinnhubConfig holds Finnhub API settings
type FinnhubConfig struct {
	Enabled bool
	APIKey  string
	BaseURL string
}

// PolygonConfig holds Polygon API settings
type PolygonConfig struct {
	Enabled bool
	APIKey  string
	BaseURL string
}

// RedditConfig holds Reddit OAuth settings
type RedditConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	UserAgent    string
	Subreddits   []string
}

// Load reads configuration from environment variables. Credentials for
// enabled providers are validated eagerly so a misconfigured deployment
// fails at startup rather than mid-cycle.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "tickerwatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC", "ingest-events"),
		},
		Ingest: IngestConfig{
			Watchlist:        splitList(getEnv("WATCHLIST", "AAPL,MSFT,GOOGL")),
			Interval:         getEnvDuration("INGEST_INTERVAL", 5*time.Minute),
			SkewAllowance:    getEnvDuration("WATERMARK_SKEW_ALLOWANCE", time.Minute),
			FirstRunLookback: getEnvDuration("FIRST_RUN_LOOKBACK", 24*time.Hour),
			OverlapBuffer:    getEnvDuration("OVERLAP_BUFFER", 2*time.Minute),
		},
		Providers: ProvidersConfig{
			Finnhub: FinnhubConfig{
				Enabled: getEnvBool("FINNHUB_ENABLED", true),
				APIKey:  getEnv("FINNHUB_API_KEY", ""),
				BaseURL: getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
			},
			Polygon: PolygonConfig{
				Enabled: getEnvBool("POLYGON_ENABLED", true),
				APIKey:  getEnv("POLYGON_API_KEY", ""),
				BaseURL: getEnv("POLYGON_BASE_URL", "https://api.polygon.io"),
			},
			Reddit: RedditConfig{
				Enabled:      getEnvBool("REDDIT_ENABLED", false),
				ClientID:     getEnv("REDDIT_CLIENT_ID", ""),
				ClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
				UserAgent:    getEnv("REDDIT_USER_AGENT", ""),
				Subreddits:   splitList(getEnv("REDDIT_SUBREDDITS", "stocks,wallstreetbets")),
			},
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Ingest.Watchlist) == 0 {
		return fmt.Errorf("WATCHLIST must list at least one symbol")
	}
	if c.Providers.Finnhub.Enabled && c.Providers.Finnhub.APIKey == "" {
		return fmt.Errorf("FINNHUB_API_KEY is required when finnhub is enabled")
	}
	if c.Providers.Polygon.Enabled && c.Providers.Polygon.APIKey == "" {
		return fmt.Errorf("POLYGON_API_KEY is required when polygon is enabled")
	}
	if c.Providers.Reddit.Enabled {
		if c.Providers.Reddit.ClientID == "" || c.Providers.Reddit.ClientSecret == "" {
			return fmt.Errorf("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET are required when reddit is enabled")
		}
		if c.Providers.Reddit.UserAgent == "" {
			return fmt.Errorf("REDDIT_USER_AGENT is required when reddit is enabled")
		}
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
