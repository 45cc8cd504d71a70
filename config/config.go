// Package config loads the system configuration from defaults, an optional
// YAML file and SKWAQ_* environment variable overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// RedisConfig controls the optional Redis-backed event bus. An empty Addr
// means the in-memory bus is used.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ModelConfig selects the language model backing the skill executors.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "anthropic", "mock"
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	APIKey      string  `yaml:"api_key"`
}

// OrchestratorConfig tunes the coordinating agent.
type OrchestratorConfig struct {
	TaskTimeout time.Duration `yaml:"task_timeout"`
}

// Config is the root configuration document.
type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	Redis        RedisConfig        `yaml:"redis"`
	Model        ModelConfig        `yaml:"model"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Agents holds per-agent settings keyed by the agent's config key. The
	// values are opaque to the runtime and interpreted by the agent itself.
	Agents map[string]map[string]any `yaml:"agents"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Model: ModelConfig{
			Provider:    "mock",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Orchestrator: OrchestratorConfig{TaskTimeout: 30 * time.Second},
		Agents:       map[string]map[string]any{},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path if non-empty, then SKWAQ_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AgentSettings returns the opaque settings map for an agent's config key.
// Unknown keys yield an empty map.
func (c *Config) AgentSettings(configKey string) map[string]any {
	settings, ok := c.Agents[configKey]
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	return out
}

// Validate rejects configurations the runtime cannot honor.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("model temperature must be between 0 and 2")
	}
	if c.Orchestrator.TaskTimeout <= 0 {
		return fmt.Errorf("orchestrator task_timeout must be positive")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SKWAQ_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SKWAQ_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SKWAQ_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SKWAQ_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SKWAQ_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SKWAQ_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}
	if v := os.Getenv("SKWAQ_MODEL_PROVIDER"); v != "" {
		cfg.Model.Provider = v
	}
	if v := os.Getenv("SKWAQ_MODEL_NAME"); v != "" {
		cfg.Model.Name = v
	}
	if v := os.Getenv("SKWAQ_MODEL_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("SKWAQ_TASK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SKWAQ_TASK_TIMEOUT: %w", err)
		}
		cfg.Orchestrator.TaskTimeout = d
	}
	return nil
}
