package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Search    SearchConfig    `mapstructure:"search"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Trust     TrustConfig     `mapstructure:"trust"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SearchConfig holds search provider configuration
type SearchConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	EngineID          string        `mapstructure:"engine_id"`
	BaseURL           string        `mapstructure:"base_url"`
	ResultCount       int           `mapstructure:"result_count"`
	SafeSearch        string        `mapstructure:"safe_search"`
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
}

// Configured reports whether provider credentials are present
func (s SearchConfig) Configured() bool {
	return s.APIKey != "" && s.EngineID != ""
}

// DiscoveryConfig holds product discovery configuration
type DiscoveryConfig struct {
	Concurrency          int      `mapstructure:"concurrency"`
	MaxTiersPerCandidate int      `mapstructure:"max_tiers_per_candidate"`
	MaxCallsPerRequest   int      `mapstructure:"max_calls_per_request"`
	ProviderDownAfter    int      `mapstructure:"provider_down_after"`
	InitialDisplay       int      `mapstructure:"initial_display"`
	Audience             string   `mapstructure:"audience"`
	FallbackSearchURL    string   `mapstructure:"fallback_search_url"`
	Brands               []string `mapstructure:"brands"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type         string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL     string        `mapstructure:"redis_url"`
	Prefix       string        `mapstructure:"prefix"`
	TTL          time.Duration `mapstructure:"ttl"`
	ExcerptTurns int           `mapstructure:"excerpt_turns"`
}

// TrustConfig points at an optional trust table file; empty uses built-in defaults
type TrustConfig struct {
	File string `mapstructure:"file"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Keys without a default must be bound explicitly to be read from the environment
var envOnlyKeys = []string{
	"search.api_key",
	"search.engine_id",
	"cache.redis_url",
	"trust.file",
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/productlens/")

	// Environment variable settings: search.api_key -> PRODUCTLENS_SEARCH_API_KEY
	v.SetEnvPrefix("PRODUCTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env when present. Variables already set in the
// environment are not overridden.
func loadEnvFile() error {
	err := godotenv.Load(".env")
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("error loading .env file: %w", err)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})

	// Search provider defaults
	v.SetDefault("search.base_url", "https://www.googleapis.com")
	v.SetDefault("search.result_count", 6)
	v.SetDefault("search.safe_search", "active")
	v.SetDefault("search.call_timeout", "6s")
	v.SetDefault("search.requests_per_second", 10)
	v.SetDefault("search.burst", 10)
	v.SetDefault("search.max_attempts", 1)

	// Discovery defaults
	v.SetDefault("discovery.concurrency", 3)
	v.SetDefault("discovery.max_tiers_per_candidate", 5)
	v.SetDefault("discovery.max_calls_per_request", 12)
	v.SetDefault("discovery.provider_down_after", 3)
	v.SetDefault("discovery.initial_display", 3)
	v.SetDefault("discovery.audience", "men")
	v.SetDefault("discovery.fallback_search_url", "https://www.amazon.com/s?k=")
	v.SetDefault("discovery.brands", []string{})

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.prefix", "productlens:")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.excerpt_turns", 4)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration. Missing provider credentials are
// not an error: discovery reports the provider as unavailable per request.
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache type is 'redis'")
	}

	if config.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got: %s", config.Cache.TTL)
	}

	if config.Search.ResultCount < 1 || config.Search.ResultCount > 10 {
		return fmt.Errorf("search result count must be between 1 and 10, got: %d", config.Search.ResultCount)
	}

	if config.Discovery.Concurrency < 1 {
		return fmt.Errorf("discovery concurrency must be at least 1, got: %d", config.Discovery.Concurrency)
	}

	if config.Discovery.MaxTiersPerCandidate < 1 || config.Discovery.MaxTiersPerCandidate > 5 {
		return fmt.Errorf("max tiers per candidate must be between 1 and 5, got: %d", config.Discovery.MaxTiersPerCandidate)
	}

	if config.Discovery.MaxCallsPerRequest < 1 {
		return fmt.Errorf("max calls per request must be at least 1, got: %d", config.Discovery.MaxCallsPerRequest)
	}

	if config.Discovery.ProviderDownAfter < 1 {
		return fmt.Errorf("provider down after must be at least 1, got: %d", config.Discovery.ProviderDownAfter)
	}

	if u, err := url.Parse(config.Discovery.FallbackSearchURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("fallback search URL must be absolute, got: %q", config.Discovery.FallbackSearchURL)
	}

	switch config.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	return nil
}
