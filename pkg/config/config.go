// Package config loads processor configuration from a YAML file with
// environment-variable overrides for credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" decode.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: duration must be a string like \"30s\": %w", err)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all processor configuration.
type Config struct {
	PromptsDir   string   `yaml:"prompts_dir"`
	InputDir     string   `yaml:"input_dir"`
	OutputDir    string   `yaml:"output_dir"`
	OutputPrefix string   `yaml:"output_prefix"`
	PromptFiles  []string `yaml:"prompt_files"`

	OpenAI  OpenAIConfig  `yaml:"openai"`
	Retry   RetryConfig   `yaml:"retry"`
	Cache   CacheConfig   `yaml:"cache"`
	Breaker BreakerConfig `yaml:"circuit_breaker"`

	MaxWorkers     int      `yaml:"max_workers"`
	RequestTimeout Duration `yaml:"request_timeout"`
	MetricsPort    int      `yaml:"metrics_port"`
}

// OpenAIConfig holds completion service settings. APIKeys takes
// precedence over APIKey when both are set.
type OpenAIConfig struct {
	APIKey      string   `yaml:"api_key"`
	APIKeys     []string `yaml:"api_keys"`
	Model       string   `yaml:"model"`
	Temperature float32  `yaml:"temperature"`
	MaxTokens   int32    `yaml:"max_tokens"`
}

// RetryConfig holds retry/backoff settings.
type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	BackoffBase float64  `yaml:"backoff_base"`
	BackoffUnit Duration `yaml:"backoff_unit"`
}

// CacheConfig holds optional Redis response cache settings. An empty
// RedisAddr disables the cache.
type CacheConfig struct {
	RedisAddr     string   `yaml:"redis_addr"`
	RedisPassword string   `yaml:"redis_password"`
	RedisDB       int      `yaml:"redis_db"`
	TTL           Duration `yaml:"ttl"`
}

// BreakerConfig holds optional circuit breaker settings.
type BreakerConfig struct {
	Enabled          bool     `yaml:"enabled"`
	FailureThreshold int      `yaml:"failure_threshold"`
	Cooldown         Duration `yaml:"cooldown"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		PromptsDir:  "prompts",
		InputDir:    "input",
		OutputDir:   "output",
		PromptFiles: []string{"standard_prompt.txt"},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4",
			Temperature: 0.7,
			MaxTokens:   1500,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BackoffBase: 2,
			BackoffUnit: Duration(time.Second),
		},
		Cache: CacheConfig{
			TTL: Duration(time.Hour),
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			Cooldown:         Duration(30 * time.Second),
		},
		MaxWorkers:     5,
		RequestTimeout: Duration(30 * time.Second),
	}
}

// Load reads configuration from a YAML file on top of the defaults and
// applies environment overrides. An empty path skips the file entirely;
// a non-empty path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays credential settings from the environment.
// OPENAI_API_KEYS (comma-separated) wins over OPENAI_API_KEY.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEYS"); v != "" {
		c.OpenAI.APIKeys = splitKeys(v)
	}
}

// Keys returns the configured API keys as a list.
func (c *Config) Keys() []string {
	if len(c.OpenAI.APIKeys) > 0 {
		return c.OpenAI.APIKeys
	}
	if c.OpenAI.APIKey != "" {
		return []string{c.OpenAI.APIKey}
	}
	return nil
}

// Validate checks settings that must be resolved before any document is
// processed.
func (c *Config) Validate() error {
	if len(c.Keys()) == 0 {
		return errors.New("config: OpenAI API key not found; set OPENAI_API_KEY or openai.api_key")
	}
	if c.OpenAI.Model == "" {
		return errors.New("config: openai.model must not be empty")
	}
	if len(c.PromptFiles) == 0 {
		return errors.New("config: prompt_files must name at least one fragment")
	}
	return nil
}

func splitKeys(s string) []string {
	var keys []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}
