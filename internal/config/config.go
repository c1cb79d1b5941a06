package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main onion configuration
type Config struct {
	Agent   AgentConfig   `json:"agent" mapstructure:"agent"`
	Model   ModelConfig   `json:"model" mapstructure:"model"`
	History HistoryConfig `json:"history" mapstructure:"history"`
	Tools   ToolsConfig   `json:"tools" mapstructure:"tools"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory, defaults to ~/.onion
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// AgentConfig describes the agent a task runs against
type AgentConfig struct {
	Name          string `json:"name" mapstructure:"name"`
	SystemPrompt  string `json:"system_prompt" mapstructure:"system_prompt"`
	MaxIterations int    `json:"max_iterations" mapstructure:"max_iterations"`
}

// ModelConfig selects and configures the model backend
type ModelConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // anthropic, openai, gemini
	Model       string  `json:"model" mapstructure:"model"`
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	BaseURL     string  `json:"base_url" mapstructure:"base_url"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries  int     `json:"max_retries" mapstructure:"max_retries"`
	Timeout     int     `json:"timeout" mapstructure:"timeout"` // seconds
}

// HistoryConfig selects the trace store
type HistoryConfig struct {
	Backend string `json:"backend" mapstructure:"backend"` // jsonl, sqlite, bolt, memory
	Dir     string `json:"dir" mapstructure:"dir"`
}

// ToolsConfig holds built-in tool settings
type ToolsConfig struct {
	Enabled       []string `json:"enabled" mapstructure:"enabled"`
	Timeout       int      `json:"timeout" mapstructure:"timeout"` // seconds
	WorkspaceRoot string   `json:"workspace_root" mapstructure:"workspace_root"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

var (
	validProviders = []string{"anthropic", "openai", "gemini"}
	validBackends  = []string{"jsonl", "sqlite", "bolt", "memory"}
)

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:          "assistant",
			SystemPrompt:  "You are a helpful assistant.",
			MaxIterations: 10,
		},
		Model: ModelConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   4096,
			MaxRetries:  3,
			Timeout:     60,
		},
		History: HistoryConfig{
			Backend: "jsonl",
		},
		Tools: ToolsConfig{
			Enabled: []string{"search", "calculate", "get_time", "read_file"},
			Timeout: 30,
		},
		Logging: LoggingConfig{
			Level:     "warn",
			Pretty:    true,
			Redaction: true,
		},
	}
}

// String returns a JSON representation of the config with the API key masked
func (c *Config) String() string {
	masked := *c
	if masked.Model.APIKey != "" {
		masked.Model.APIKey = "****"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Agent.Name == "" {
		return fmt.Errorf("agent name is required")
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent max_iterations must be positive, got %d", c.Agent.MaxIterations)
	}
	if !contains(validProviders, c.Model.Provider) {
		return fmt.Errorf("invalid model provider %q (must be: anthropic, openai, gemini)", c.Model.Provider)
	}
	if c.Model.Model == "" {
		return fmt.Errorf("model name is required")
	}
	if !contains(validBackends, c.History.Backend) {
		return fmt.Errorf("invalid history backend %q (must be: jsonl, sqlite, bolt, memory)", c.History.Backend)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
