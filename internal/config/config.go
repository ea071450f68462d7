// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported completion providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default models used when llm.model is not set.
const (
	DefaultOpenAIModel    = "gpt-3.5-turbo"
	DefaultAnthropicModel = "claude-sonnet-4-5"
)

// Supported content stores.
const (
	PublisherWordPress = "wordpress"
	PublisherMemory    = "memory"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Trends    TrendsConfig    `mapstructure:"trends"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// HTTPConfig configures the outbound HTTP clients.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// TrendsConfig configures the Google Trends related-queries lookup.
type TrendsConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	HL        string `mapstructure:"hl"`
	TZ        int    `mapstructure:"tz"`
	Timeframe string `mapstructure:"timeframe"`
	Geo       string `mapstructure:"geo"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// PublisherConfig configures the content store.
type PublisherConfig struct {
	Kind        string `mapstructure:"kind"`
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	AppPassword string `mapstructure:"app_password"`
	Status      string `mapstructure:"status"`
}

// PipelineConfig governs the per-job keyword loop.
type PipelineConfig struct {
	PostDelay time.Duration `mapstructure:"post_delay"`
}

// FeedConfig bounds the shared log feed.
type FeedConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// ProgressConfig controls the progress hub and its sinks.
type ProgressConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	LogEnabled bool `mapstructure:"log_enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
}

// JobsConfig bounds the in-memory job registry.
type JobsConfig struct {
	MaxFinished int `mapstructure:"max_finished"`
}

// Load builds a Config from .env, disk, and environment.
func Load(path string) (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("AUTOBLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	applyProviderDefaults(v, &cfg.LLM)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadDotEnv reads ./.env into the process environment without overriding
// variables that are already set.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// legacyKeyEnv maps each provider to the API key variable used by existing
// deployments.
var legacyKeyEnv = map[string]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// bindLegacyEnv keeps the variable names used by existing deployments working.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"llm.api_key":            {"AUTOBLOG_LLM_API_KEY"},
		"publisher.url":          {"AUTOBLOG_PUBLISHER_URL", "WP_URL"},
		"publisher.username":     {"AUTOBLOG_PUBLISHER_USERNAME", "WP_USER"},
		"publisher.app_password": {"AUTOBLOG_PUBLISHER_APP_PASSWORD", "WP_APP_PASSWORD"},
	}
	for provider, env := range legacyKeyEnv {
		bindings[legacyKeyPath(provider)] = []string{env}
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func legacyKeyPath(provider string) string {
	return "legacy." + provider + "_api_key"
}

// applyProviderDefaults fills the key and model that belong to the selected
// provider when they were not set explicitly.
func applyProviderDefaults(v *viper.Viper, c *LLMConfig) {
	if c.APIKey == "" {
		if _, ok := legacyKeyEnv[c.Provider]; ok {
			c.APIKey = v.GetString(legacyKeyPath(c.Provider))
		}
	}
	if c.Model == "" {
		switch c.Provider {
		case ProviderOpenAI:
			c.Model = DefaultOpenAIModel
		case ProviderAnthropic:
			c.Model = DefaultAnthropicModel
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("logging.development", true)
	v.SetDefault("http.timeout_seconds", 120)
	v.SetDefault("http.user_agent", "autoblog/0.1")
	v.SetDefault("trends.base_url", "https://trends.google.com")
	v.SetDefault("trends.hl", "en-US")
	v.SetDefault("trends.tz", 360)
	v.SetDefault("trends.timeframe", "today 12-m")
	v.SetDefault("trends.geo", "")
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_tokens", 1200)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("publisher.kind", PublisherWordPress)
	v.SetDefault("publisher.status", "publish")
	v.SetDefault("pipeline.post_delay", "5s")
	v.SetDefault("feed.capacity", 50)
	v.SetDefault("progress.enabled", true)
	v.SetDefault("progress.log_enabled", false)
	v.SetDefault("progress.buffer_size", 1024)
	v.SetDefault("jobs.max_finished", 100)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Feed.Capacity <= 0 {
		return fmt.Errorf("feed.capacity must be > 0")
	}
	if c.Pipeline.PostDelay < 0 {
		return fmt.Errorf("pipeline.post_delay must be >= 0")
	}
	if c.Jobs.MaxFinished < 0 {
		return fmt.Errorf("jobs.max_finished must be >= 0")
	}
	if c.Trends.BaseURL == "" {
		return fmt.Errorf("trends.base_url must be set")
	}
	if err := c.LLM.validate(); err != nil {
		return err
	}
	return c.Publisher.validate()
}

func (c LLMConfig) validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("llm.api_key must be set")
	}
	if c.Model == "" {
		return fmt.Errorf("llm.model must be set")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be > 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2]")
	}
	return nil
}

func (c PublisherConfig) validate() error {
	switch c.Kind {
	case PublisherMemory:
		return nil
	case PublisherWordPress:
	default:
		return fmt.Errorf("publisher.kind %q is not supported", c.Kind)
	}
	if c.URL == "" {
		return fmt.Errorf("publisher.url must be set for the wordpress publisher")
	}
	if c.Username == "" || c.AppPassword == "" {
		return fmt.Errorf("publisher.username and publisher.app_password must be set for the wordpress publisher")
	}
	if c.Status == "" {
		return fmt.Errorf("publisher.status must be set")
	}
	return nil
}

// HTTPTimeout converts the configured timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
