package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/maltedev/chamber-scraper/internal/browser"
)

const (
	EnginePlaywright = browser.EnginePlaywright
	EngineChromedp   = browser.EngineChromedp
	EngineHTTP       = browser.EngineHTTP
)

type Config struct {
	Site     SiteConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Output   OutputConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type SiteConfig struct {
	BaseURL    string
	IndexPath  string
	RegionPath string
}

// IndexURL is the directory page that lists every region.
func (s SiteConfig) IndexURL() string {
	return strings.TrimRight(s.BaseURL, "/") + s.IndexPath
}

type ScraperConfig struct {
	DiscoveryTimeout time.Duration
	RegionTimeout    time.Duration
	IndexSettle      time.Duration
	RegionSettle     time.Duration
}

type BrowserConfig struct {
	Engine     string
	Headless   bool
	Timeout    time.Duration
	UserAgent  string
	Locale     string
	TimezoneID string
}

type OutputConfig struct {
	Dir string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Stream   string
}

type ServerConfig struct {
	Port int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment. Variables from a .env file
// in the working directory are applied first without overriding the
// process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Site: SiteConfig{
			BaseURL:    getEnvOrDefault("CHAMBER_BASE_URL", "https://www.uschamber.com"),
			IndexPath:  getEnvOrDefault("CHAMBER_INDEX_PATH", "/co/chambers"),
			RegionPath: getEnvOrDefault("CHAMBER_REGION_PATH", "/co/chambers/"),
		},
		Scraper: ScraperConfig{
			DiscoveryTimeout: getDurationOrDefault("SCRAPER_DISCOVERY_TIMEOUT", 10*time.Second),
			RegionTimeout:    getDurationOrDefault("SCRAPER_REGION_TIMEOUT", 10*time.Second),
			IndexSettle:      getDurationOrDefault("SCRAPER_INDEX_SETTLE", 3*time.Second),
			RegionSettle:     getDurationOrDefault("SCRAPER_REGION_SETTLE", 2*time.Second),
		},
		Browser: BrowserConfig{
			Engine:     strings.ToLower(getEnvOrDefault("BROWSER_ENGINE", EnginePlaywright)),
			Headless:   getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:    getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			UserAgent:  getEnvOrDefault("BROWSER_USER_AGENT", defaultUserAgent),
			Locale:     getEnvOrDefault("BROWSER_LOCALE", "en-US"),
			TimezoneID: getEnvOrDefault("BROWSER_TIMEZONE", "America/New_York"),
		},
		Output: OutputConfig{
			Dir: getEnvOrDefault("OUTPUT_DIR", "chambers_by_state"),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "chambers"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 5)),
		},
		Redis: RedisConfig{
			Enabled:  getBoolOrDefault("REDIS_ENABLED", false),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:chamber_regions"),
		},
		Server: ServerConfig{
			Port: getIntOrDefault("SERVER_PORT", 8084),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CHAMBER_BASE_URL must be an absolute URL, got %q", c.Site.BaseURL)
	}

	if !strings.HasPrefix(c.Site.IndexPath, "/") {
		return fmt.Errorf("CHAMBER_INDEX_PATH must start with /")
	}

	if c.Site.RegionPath == "" {
		return fmt.Errorf("CHAMBER_REGION_PATH is required")
	}

	switch c.Browser.Engine {
	case EnginePlaywright, EngineChromedp, EngineHTTP:
	default:
		return fmt.Errorf("unknown BROWSER_ENGINE %q", c.Browser.Engine)
	}

	if c.Scraper.DiscoveryTimeout <= 0 || c.Scraper.RegionTimeout <= 0 {
		return fmt.Errorf("scraper wait timeouts must be positive")
	}

	if c.Scraper.IndexSettle < 0 || c.Scraper.RegionSettle < 0 {
		return fmt.Errorf("settle delays cannot be negative")
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}

	if c.Database.Enabled && c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required when DB_ENABLED is set")
	}

	if c.Redis.Enabled && c.Redis.Stream == "" {
		return fmt.Errorf("REDIS_STREAM is required when REDIS_ENABLED is set")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	return nil
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
