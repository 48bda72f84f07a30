package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the service and the CLI commands need.
// It is built once at startup and passed down explicitly.
type Config struct {
	AppPort string

	DBDriver    string
	DatabaseDSN string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CatalogCSVPath   string
	ScraperRootURL   string
	ScraperRPS       float64
	ScraperUserAgent string
	ScraperTimeout   time.Duration

	RedisAddr string
	CacheTTL  time.Duration

	RabbitMQURL string

	LogLevel string

	RateLimitMax        int
	RateLimitWindow     time.Duration
	AuthRateLimitMax    int
	AuthRateLimitWindow time.Duration
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "bookshelf.db")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("CATALOG_CSV_PATH", "data/books.csv")
	v.SetDefault("SCRAPER_ROOT_URL", "https://books.toscrape.com/catalogue/page-1.html")
	v.SetDefault("SCRAPER_RPS", 5.0)
	v.SetDefault("SCRAPER_USER_AGENT", "Mozilla/5.0 (compatible; bookshelf-scraper/1.0)")
	v.SetDefault("SCRAPER_TIMEOUT", "15s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "1h")
	v.SetDefault("AUTH_RATE_LIMIT_MAX", 5)
	v.SetDefault("AUTH_RATE_LIMIT_WINDOW", "10m")
}

// Load reads an optional .env file, then the environment, on top of the defaults.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:             v.GetString("APP_PORT"),
		DBDriver:            strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:         v.GetString("DATABASE_DSN"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		AccessTokenTTL:      v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL:     v.GetDuration("REFRESH_TOKEN_TTL"),
		CatalogCSVPath:      v.GetString("CATALOG_CSV_PATH"),
		ScraperRootURL:      v.GetString("SCRAPER_ROOT_URL"),
		ScraperRPS:          v.GetFloat64("SCRAPER_RPS"),
		ScraperUserAgent:    v.GetString("SCRAPER_USER_AGENT"),
		ScraperTimeout:      v.GetDuration("SCRAPER_TIMEOUT"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		CacheTTL:            v.GetDuration("CACHE_TTL"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		RateLimitMax:        v.GetInt("RATE_LIMIT_MAX"),
		RateLimitWindow:     v.GetDuration("RATE_LIMIT_WINDOW"),
		AuthRateLimitMax:    v.GetInt("AUTH_RATE_LIMIT_MAX"),
		AuthRateLimitWindow: v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", c.DBDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.ScraperRPS <= 0 {
		return fmt.Errorf("SCRAPER_RPS must be positive, got %v", c.ScraperRPS)
	}
	if c.RateLimitMax <= 0 || c.AuthRateLimitMax <= 0 {
		return fmt.Errorf("rate limit maxima must be positive")
	}
	return nil
}
