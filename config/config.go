package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	GitHub       GitHubConfig       `yaml:"github"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Database     DatabaseConfig     `yaml:"database"`
	Cache        CacheConfig        `yaml:"cache"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type OpenAIConfig struct {
	APIKey              string  `yaml:"api_key"`
	Model               string  `yaml:"model"`
	MaxTokensPerRequest int     `yaml:"max_tokens_per_request"`
	Temperature         float32 `yaml:"temperature"`
	BaseURL             string  `yaml:"base_url"`
}

type GitHubConfig struct {
	Token          string `yaml:"token"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type RateLimitingConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	RequestsPerDay    int `yaml:"requests_per_day"`
}

type RetrievalConfig struct {
	MaxRelevantFiles  int      `yaml:"max_relevant_files"`
	HistoryWindow     int      `yaml:"history_window"`
	ConcurrentFetches int      `yaml:"concurrent_fetches"`
	HeroFiles         []string `yaml:"hero_files"`
	DefaultRef        string   `yaml:"default_ref"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
	TTLHours  int    `yaml:"ttl_hours"`
}

// LoadConfig loads configuration from YAML file with environment variable substitution
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	// Substitute environment variables
	content := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %v", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &config, nil
}

// applyDefaults fills in defaults for optional settings
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.GitHub.TimeoutSeconds <= 0 {
		c.GitHub.TimeoutSeconds = 15
	}
	if c.Retrieval.MaxRelevantFiles <= 0 {
		c.Retrieval.MaxRelevantFiles = 4
	}
	if c.Retrieval.HistoryWindow <= 0 {
		c.Retrieval.HistoryWindow = 3
	}
	if c.Retrieval.ConcurrentFetches <= 0 {
		c.Retrieval.ConcurrentFetches = 8
	}
	if len(c.Retrieval.HeroFiles) == 0 {
		c.Retrieval.HeroFiles = []string{"readme.md", "package.json", "cargo.toml"}
	}
	if c.Retrieval.DefaultRef == "" {
		c.Retrieval.DefaultRef = "main"
	}
	if c.Database.Path == "" {
		c.Database.Path = "repo-explainer.db"
	}
	if c.RateLimiting.RequestsPerMinute <= 0 {
		c.RateLimiting.RequestsPerMinute = 60
	}
	if c.RateLimiting.RequestsPerDay <= 0 {
		c.RateLimiting.RequestsPerDay = 5000
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}

	if c.OpenAI.Model == "" {
		return fmt.Errorf("OpenAI model is required")
	}

	if c.Cache.Enabled && c.Cache.Directory == "" {
		return fmt.Errorf("cache directory is required when cache is enabled")
	}

	return nil
}

// expandEnvVars expands environment variables in the format ${VAR_NAME}
func expandEnvVars(content string) string {
	return os.Expand(content, func(key string) string {
		return os.Getenv(key)
	})
}

// GetCacheTTL returns the cache TTL as a time.Duration
func (c *Config) GetCacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// GetGitHubTimeout returns the per-request timeout for source-hosting API calls
func (c *Config) GetGitHubTimeout() time.Duration {
	return time.Duration(c.GitHub.TimeoutSeconds) * time.Second
}
