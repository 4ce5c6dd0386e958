// Package config loads quill configuration from an optional YAML file with
// environment variable overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all quill configuration.
type Config struct {
	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Graph store connection
	Store StoreConfig `yaml:"store"`

	// Prompt template overrides
	Prompts PromptsConfig `yaml:"prompts"`

	// Interaction engine tuning
	Engine EngineConfig `yaml:"engine"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the question-generation model. When Enabled is false
// the engine runs entirely on the deterministic heuristic policy.
type LLMConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// StoreConfig configures the Neo4j connection.
type StoreConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PromptsConfig configures prompt template loading.
type PromptsConfig struct {
	// Dir holds *.txt template overrides. Missing dir means built-in defaults.
	Dir string `yaml:"dir"`
	// Watch reloads templates when files in Dir change.
	Watch bool `yaml:"watch"`
}

// EngineConfig tunes the heuristic transition-readiness scoring. The exact
// thresholds are deliberately configurable rather than fixed.
type EngineConfig struct {
	// MinInputs is the number of answers a phase needs before length scoring
	// can judge it complete.
	MinInputs int `yaml:"min_inputs"`
	// MinTotalChars is the accumulated answer length a phase needs.
	MinTotalChars int `yaml:"min_total_chars"`
	// ContextWindow is the number of recent messages sent to the LLM.
	ContextWindow int `yaml:"context_window"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Enabled:   false,
			Model:     "claude-3-7-sonnet-latest",
			MaxTokens: 1024,
		},
		Store: StoreConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Password: "password",
		},
		Prompts: PromptsConfig{
			Dir: "prompts",
		},
		Engine: EngineConfig{
			MinInputs:     4,
			MinTotalChars: 280,
			ContextWindow: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "quill.log",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if v := os.Getenv("QUILL_ENABLE_LLM"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.LLM.Enabled = enabled
		}
	}
	if model := os.Getenv("QUILL_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		c.Store.URI = uri
	}
	if user := os.Getenv("NEO4J_USERNAME"); user != "" {
		c.Store.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		c.Store.Password = pass
	}

	if dir := os.Getenv("QUILL_PROMPTS_DIR"); dir != "" {
		c.Prompts.Dir = dir
	}
}
