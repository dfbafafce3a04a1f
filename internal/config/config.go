package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvProduction is the app.env value that enables the upstream provider
const EnvProduction = "production"

// Config holds all configuration for billchat
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	History   HistoryConfig   `mapstructure:"history"`
	Storage   StorageConfig   `mapstructure:"storage"`
	GenAI     GenAIConfig     `mapstructure:"genai"`
	Mock      MockConfig      `mapstructure:"mock"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env string `mapstructure:"env"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	BaseURL      string   `mapstructure:"base_url"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// HistoryConfig selects the chat history backend
type HistoryConfig struct {
	Backend  string `mapstructure:"backend"` // sqlite, bolt
	BoltPath string `mapstructure:"bolt_path"`
}

// StorageConfig holds bill PDF storage configuration
type StorageConfig struct {
	PDFs string `mapstructure:"pdfs"`
}

// GenAIConfig holds the upstream completion endpoint configuration
type GenAIConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	Key          string        `mapstructure:"key"`
	KeyParameter string        `mapstructure:"key_parameter"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// MockConfig holds mock generator configuration
type MockConfig struct {
	TokenDelay    time.Duration `mapstructure:"token_delay"`
	TestDirective string        `mapstructure:"test_directive"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("BILLCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Upstream agent credentials keep their deployment names.
	_ = v.BindEnv("genai.endpoint", "DIGITALOCEAN_AGENT_ENDPOINT")
	_ = v.BindEnv("genai.key", "DIGITALOCEAN_AGENT_KEY")
	_ = v.BindEnv("app.env", "BILLCHAT_APP_ENV", "APP_ENV")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("database.path", "./data/billchat.db")
	v.SetDefault("history.backend", "sqlite")
	v.SetDefault("history.bolt_path", "./data/history.bolt")
	v.SetDefault("storage.pdfs", "./data/pdfs")

	v.SetDefault("genai.endpoint", "")
	v.SetDefault("genai.key", "")
	v.SetDefault("genai.key_parameter", "")
	v.SetDefault("genai.timeout", 0)

	v.SetDefault("mock.token_delay", 50*time.Millisecond)
	v.SetDefault("mock.test_directive", "test thinking")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 10)
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction reports whether the app runs with production settings
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// HasUpstream reports whether both upstream endpoint and key are configured
func (c *Config) HasUpstream() bool {
	return c.GenAI.Endpoint != "" && c.GenAI.Key != ""
}
