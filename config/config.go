// Package config loads the evalharness application configuration: a YAML or
// TOML file describing the primary and judge models plus harness settings,
// and optional .env files holding the provider API keys.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Supported provider identifiers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// ModelConfig selects and tunes one model.
type ModelConfig struct {
	// Provider is one of openai, anthropic, gemini or mock.
	Provider string `yaml:"provider" toml:"provider"`

	// Model is the provider model id; empty uses the adapter default.
	Model string `yaml:"model,omitempty" toml:"model,omitempty"`

	// APIKeyEnv names the environment variable holding the API key.
	// Keys are never read from YAML.
	APIKeyEnv string `yaml:"api_key_env,omitempty" toml:"api_key_env,omitempty"`

	// BaseURL overrides the API endpoint (openai, anthropic).
	BaseURL string `yaml:"base_url,omitempty" toml:"base_url,omitempty"`

	Temperature *float64 `yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	MaxTokens   int64    `yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`

	// System is the default system text of the client.
	System string `yaml:"system,omitempty" toml:"system,omitempty"`
}

// APIKey resolves the key from the environment, or "" to let the SDK decide.
func (m ModelConfig) APIKey() string {
	if m.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(m.APIKeyEnv)
}

// Validate checks the model configuration.
func (m ModelConfig) Validate() error {
	switch m.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderMock:
	case "":
		return errors.New("provider is required")
	default:
		return fmt.Errorf("unknown provider %q", m.Provider)
	}
	if m.Temperature != nil && (*m.Temperature < 0 || *m.Temperature > 2) {
		return fmt.Errorf("temperature %v must be between 0 and 2", *m.Temperature)
	}
	if m.MaxTokens < 0 {
		return errors.New("max_tokens must be non-negative")
	}
	return nil
}

// HarnessConfig mirrors the harness builder settings. Unset (nil) values keep
// the harness defaults; set values are passed to the builder as given.
type HarnessConfig struct {
	SuccessRating     *int   `yaml:"success_rating,omitempty" toml:"success_rating,omitempty"`
	MaxRepeatAttempts *int   `yaml:"max_repeat_attempts,omitempty" toml:"max_repeat_attempts,omitempty"`
	Order             *int   `yaml:"order,omitempty" toml:"order,omitempty"`
	TemplateFile      string `yaml:"template_file,omitempty" toml:"template_file,omitempty"`
}

// ChaosConfig enables response corruption for retry demos.
type ChaosConfig struct {
	Enabled     bool    `yaml:"enabled" toml:"enabled"`
	Probability float64 `yaml:"probability,omitempty" toml:"probability,omitempty"`
}

// MemoryConfig bounds the conversation history kept by the chat command.
type MemoryConfig struct {
	// MaxMessages keeps only the most recent messages; 0 keeps everything.
	MaxMessages int `yaml:"max_messages,omitempty" toml:"max_messages,omitempty"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level,omitempty"`
	Format string `yaml:"format,omitempty" toml:"format,omitempty"`
	// Advisors adds request/response logging advisors to both chains.
	Advisors bool `yaml:"advisors" toml:"advisors"`
}

// Config is the application configuration.
type Config struct {
	Primary ModelConfig `yaml:"primary" toml:"primary"`

	// Judge configures a separate judge model. When nil the judge reuses
	// the primary model.
	Judge *ModelConfig `yaml:"judge,omitempty" toml:"judge,omitempty"`

	Harness HarnessConfig `yaml:"harness" toml:"harness"`
	Chaos   ChaosConfig   `yaml:"chaos" toml:"chaos"`
	Memory  MemoryConfig  `yaml:"memory" toml:"memory"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// Default returns a configuration running entirely on the mock provider.
func Default() *Config {
	return &Config{
		Primary: ModelConfig{Provider: ProviderMock},
		Chaos:   ChaosConfig{Probability: 0.5},
		Memory:  MemoryConfig{MaxMessages: 20},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Validate checks the complete configuration.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Primary.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("primary: %w", err))
	}
	if c.Judge != nil {
		if err := c.Judge.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("judge: %w", err))
		}
	}
	if c.Chaos.Probability < 0 || c.Chaos.Probability > 1 {
		errs = append(errs, fmt.Errorf("chaos: probability %v must be between 0 and 1", c.Chaos.Probability))
	}
	if c.Memory.MaxMessages < 0 {
		errs = append(errs, errors.New("memory: max_messages must be non-negative"))
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// JudgeModel returns the judge settings and whether they differ from the
// primary model.
func (c *Config) JudgeModel() (ModelConfig, bool) {
	if c.Judge == nil {
		return c.Primary, false
	}
	return *c.Judge, true
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// ParseTOML decodes TOML over the defaults and validates the result.
func ParseTOML(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Load reads the config file at path; files ending in .toml are TOML,
// everything else YAML. An empty path yields Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(data)
	}
	return Parse(data)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// LoadEnv loads the given .env files into the process environment without
// overriding variables that are already set. Missing files are skipped;
// with no arguments ".env" is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}
