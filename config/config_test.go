package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// chdirTemp switches into an empty directory so no config.yaml or .env is picked up
func chdirTemp(t *testing.T) string {
	t.Helper()
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	t.Cleanup(func() { os.Chdir(originalDir) })
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		chdirTemp(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Search.BaseURL != "https://www.googleapis.com" {
			t.Errorf("Search.BaseURL = %s", cfg.Search.BaseURL)
		}
		if cfg.Search.ResultCount != 6 {
			t.Errorf("Search.ResultCount = %d, want 6", cfg.Search.ResultCount)
		}
		if cfg.Search.CallTimeout != 6*time.Second {
			t.Errorf("Search.CallTimeout = %v, want 6s", cfg.Search.CallTimeout)
		}
		if cfg.Search.Configured() {
			t.Error("Search.Configured() = true, want false without credentials")
		}
		if cfg.Discovery.Concurrency != 3 || cfg.Discovery.MaxCallsPerRequest != 12 || cfg.Discovery.MaxTiersPerCandidate != 5 {
			t.Errorf("Discovery = %+v", cfg.Discovery)
		}
		if cfg.Discovery.InitialDisplay != 3 || cfg.Discovery.Audience != "men" {
			t.Errorf("Discovery = %+v", cfg.Discovery)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.Cache.ExcerptTurns != 4 {
			t.Errorf("Cache.ExcerptTurns = %d, want 4", cfg.Cache.ExcerptTurns)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Errorf("Log = %+v", cfg.Log)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("PRODUCTLENS_SERVER_PORT", "9090")
		t.Setenv("PRODUCTLENS_SERVER_ENVIRONMENT", "production")
		t.Setenv("PRODUCTLENS_SEARCH_API_KEY", "custom-api-key")
		t.Setenv("PRODUCTLENS_SEARCH_ENGINE_ID", "engine-123")
		t.Setenv("PRODUCTLENS_SEARCH_CALL_TIMEOUT", "3s")
		t.Setenv("PRODUCTLENS_DISCOVERY_CONCURRENCY", "5")
		t.Setenv("PRODUCTLENS_CACHE_TYPE", "redis")
		t.Setenv("PRODUCTLENS_CACHE_REDIS_URL", "redis://localhost:6379")
		t.Setenv("PRODUCTLENS_CACHE_TTL", "1h")
		t.Setenv("PRODUCTLENS_TRUST_FILE", "/etc/productlens/trust.yaml")
		t.Setenv("PRODUCTLENS_RATELIMIT_PER_IP", "200")
		t.Setenv("PRODUCTLENS_LOG_FORMAT", "console")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Search.APIKey != "custom-api-key" || cfg.Search.EngineID != "engine-123" {
			t.Errorf("Search = %+v", cfg.Search)
		}
		if !cfg.Search.Configured() {
			t.Error("Search.Configured() = false, want true")
		}
		if cfg.Search.CallTimeout != 3*time.Second {
			t.Errorf("Search.CallTimeout = %v, want 3s", cfg.Search.CallTimeout)
		}
		if cfg.Discovery.Concurrency != 5 {
			t.Errorf("Discovery.Concurrency = %d, want 5", cfg.Discovery.Concurrency)
		}
		if cfg.Cache.Type != "redis" || cfg.Cache.RedisURL != "redis://localhost:6379" {
			t.Errorf("Cache = %+v", cfg.Cache)
		}
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
		}
		if cfg.Trust.File != "/etc/productlens/trust.yaml" {
			t.Errorf("Trust.File = %s", cfg.Trust.File)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
		if cfg.Log.Format != "console" {
			t.Errorf("Log.Format = %s, want console", cfg.Log.Format)
		}
	})

	t.Run("reads config file", func(t *testing.T) {
		dir := chdirTemp(t)
		content := `
search:
  engine_id: file-engine
discovery:
  audience: women
  brands:
    - Acme
    - Globex
cache:
  excerpt_turns: 2
`
		if err := os.WriteFile(dir+"/config.yaml", []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.Search.EngineID != "file-engine" {
			t.Errorf("Search.EngineID = %s, want file-engine", cfg.Search.EngineID)
		}
		if cfg.Discovery.Audience != "women" {
			t.Errorf("Discovery.Audience = %s, want women", cfg.Discovery.Audience)
		}
		if len(cfg.Discovery.Brands) != 2 || cfg.Discovery.Brands[1] != "Globex" {
			t.Errorf("Discovery.Brands = %v", cfg.Discovery.Brands)
		}
		if cfg.Cache.ExcerptTurns != 2 {
			t.Errorf("Cache.ExcerptTurns = %d, want 2", cfg.Cache.ExcerptTurns)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("PRODUCTLENS_CACHE_TYPE", "invalid")

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})

	t.Run("fails validation when redis URL missing for redis cache", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("PRODUCTLENS_CACHE_TYPE", "redis")

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for missing Redis URL")
		}
		if err != nil && !strings.HasPrefix(err.Error(), "invalid configuration:") {
			t.Errorf("Load() error = %v, want invalid configuration", err)
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		chdirTemp(t)

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		dir := chdirTemp(t)

		envContent := `
# Comment line
TEST_VAR_1=value1
   # This is also a comment

TEST_VAR_2=value2
# TEST_COMMENTED=should_not_load
`
		if err := os.WriteFile(dir+"/.env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		t.Setenv("TEST_VAR_1", "")
		t.Setenv("TEST_VAR_2", "")
		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_COMMENTED")

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", os.Getenv("TEST_VAR_2"))
		}
		if os.Getenv("TEST_COMMENTED") != "" {
			t.Errorf("TEST_COMMENTED should not be loaded from comment")
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		dir := chdirTemp(t)
		t.Setenv("TEST_OVERRIDE", "existing-value")

		if err := os.WriteFile(dir+"/.env", []byte("TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})
}

func validConfig() *Config {
	return &Config{
		Search:    SearchConfig{ResultCount: 6},
		Discovery: DiscoveryConfig{Concurrency: 3, MaxTiersPerCandidate: 5, MaxCallsPerRequest: 12, ProviderDownAfter: 3, FallbackSearchURL: "https://www.amazon.com/s?k="},
		Cache:     CacheConfig{Type: "memory", TTL: time.Hour},
		Log:       LogConfig{Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid memory config", func(c *Config) {}, false},
		{"missing API key is allowed", func(c *Config) { c.Search.APIKey = "" }, false},
		{"redis with URL", func(c *Config) { c.Cache.Type = "redis"; c.Cache.RedisURL = "redis://localhost:6379" }, false},
		{"redis without URL", func(c *Config) { c.Cache.Type = "redis" }, true},
		{"invalid cache type", func(c *Config) { c.Cache.Type = "invalid-type" }, true},
		{"zero TTL", func(c *Config) { c.Cache.TTL = 0 }, true},
		{"result count too high", func(c *Config) { c.Search.ResultCount = 11 }, true},
		{"zero concurrency", func(c *Config) { c.Discovery.Concurrency = 0 }, true},
		{"too many tiers", func(c *Config) { c.Discovery.MaxTiersPerCandidate = 6 }, true},
		{"zero call budget", func(c *Config) { c.Discovery.MaxCallsPerRequest = 0 }, true},
		{"zero provider down threshold", func(c *Config) { c.Discovery.ProviderDownAfter = 0 }, true},
		{"relative fallback URL", func(c *Config) { c.Discovery.FallbackSearchURL = "/s?k=" }, true},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
