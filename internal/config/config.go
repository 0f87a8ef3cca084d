// Package config loads application settings with viper: defaults first,
// then an optional yaml file, then TASKPILOT_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application. Values are read by
// viper from a config file or environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Capability CapabilityConfig `mapstructure:"capability"`
	Workflows  WorkflowsConfig  `mapstructure:"workflows"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig stores HTTP transport settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"` // listen address, e.g. ":8080"
	Mode string `mapstructure:"mode"` // gin mode: "debug" or "release"
}

// StorageConfig stores durable-state settings.
type StorageConfig struct {
	Path    string        `mapstructure:"path"`    // libsql database file
	Timeout time.Duration `mapstructure:"timeout"` // per-write deadline
}

// OpenAIConfig stores settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"` // empty means the public endpoint
	Model      string `mapstructure:"model"`
	EmbedModel string `mapstructure:"embed_model"`
}

// OllamaConfig stores settings for a local ollama daemon.
type OllamaConfig struct {
	Host  string `mapstructure:"host"` // empty falls back to OLLAMA_HOST
	Model string `mapstructure:"model"`
}

// EmbeddingConfig stores the best-effort semantic enrichment settings.
type EmbeddingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Provider string `mapstructure:"provider"` // "openai", "ollama"
	Dims     int    `mapstructure:"dims"`     // expected vector dimension
}

// CapabilityConfig stores the external-capability settings: which text
// generation provider to use and the control adapters around it.
type CapabilityConfig struct {
	Provider    string        `mapstructure:"provider"` // "openai", "ollama", "none"
	OpenAI      OpenAIConfig  `mapstructure:"openai"`
	Ollama      OllamaConfig  `mapstructure:"ollama"`
	MaxTokens   int           `mapstructure:"max_tokens"`  // generation budget per call
	Temperature float32       `mapstructure:"temperature"` // sampling temperature
	Timeout     time.Duration `mapstructure:"timeout"`     // per-call deadline

	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Cache settings
	CacheEnabled  bool          `mapstructure:"cache_enabled"`
	CacheCapacity int           `mapstructure:"cache_capacity"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`

	// Rate limiting
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitCapacity int           `mapstructure:"rate_limit_capacity"`
	RateLimitRefill   time.Duration `mapstructure:"rate_limit_refill"`

	// Telemetry
	Tracing bool `mapstructure:"tracing"`
}

// WorkflowsConfig stores the periodic trigger schedules (cron expressions)
// and the embedding backfill concurrency.
type WorkflowsConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	DailyReminder      string `mapstructure:"daily_reminder"`
	ProductivityReport string `mapstructure:"productivity_report"`
	AutoSchedule       string `mapstructure:"auto_schedule"`
	PriorityReview     string `mapstructure:"priority_review"`
	EmbedConcurrency   int    `mapstructure:"embed_concurrency"`
}

// LogConfig stores logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // zerolog level name
	Pretty bool   `mapstructure:"pretty"` // console writer instead of JSON
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and environment apply.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./etc/taskpilot")
		viper.AddConfigPath("$HOME/.config/taskpilot")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.SetEnvPrefix("taskpilot")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// Watch re-decodes the configuration whenever the underlying file changes
// and hands the fresh copy to onChange. Reloads that fail to decode are
// dropped; the previous configuration stays in effect.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := viper.Unmarshal(&cfg); err != nil {
			return
		}
		onChange(&cfg)
	})
	viper.WatchConfig()
}

func setDefaults() {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("storage.path", "taskpilot.db")
	viper.SetDefault("storage.timeout", "5s")

	viper.SetDefault("capability.provider", "none")
	viper.SetDefault("capability.openai.model", "gpt-4o-mini")
	viper.SetDefault("capability.openai.embed_model", "text-embedding-3-small")
	viper.SetDefault("capability.ollama.model", "llama3.2")
	viper.SetDefault("capability.max_tokens", 400)
	viper.SetDefault("capability.temperature", 0.7)
	viper.SetDefault("capability.timeout", "15s")

	viper.SetDefault("capability.embedding.enabled", false)
	viper.SetDefault("capability.embedding.provider", "openai")
	viper.SetDefault("capability.embedding.dims", 1536)

	viper.SetDefault("capability.cache_enabled", true)
	viper.SetDefault("capability.cache_capacity", 512)
	viper.SetDefault("capability.cache_ttl", "10m")
	viper.SetDefault("capability.rate_limit_enabled", true)
	viper.SetDefault("capability.rate_limit_capacity", 10)
	viper.SetDefault("capability.rate_limit_refill", "1s")
	viper.SetDefault("capability.tracing", false)

	viper.SetDefault("workflows.enabled", true)
	viper.SetDefault("workflows.daily_reminder", "0 9 * * *")
	viper.SetDefault("workflows.productivity_report", "0 18 * * 5")
	viper.SetDefault("workflows.auto_schedule", "0 */6 * * *")
	viper.SetDefault("workflows.priority_review", "0 9 * * 1")
	viper.SetDefault("workflows.embed_concurrency", 4)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.pretty", false)
}
