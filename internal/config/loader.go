package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// providerKeyEnv maps providers to the environment variable their SDKs use.
var providerKeyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load merges defaults, the config file (when present) and ONION_* environment
// variables, in increasing order of precedence.
func (l *Loader) Load() (*Config, error) {
	configPath := l.GetConfigPath()

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("ONION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".onion")
	}

	if cfg.History.Dir == "" {
		cfg.History.Dir = filepath.Join(cfg.DataDir, "history")
	}

	if cfg.Model.APIKey == "" {
		if envName, ok := providerKeyEnv[cfg.Model.Provider]; ok {
			cfg.Model.APIKey = os.Getenv(envName)
		}
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it without a file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("agent.name", cfg.Agent.Name)
	v.SetDefault("agent.system_prompt", cfg.Agent.SystemPrompt)
	v.SetDefault("agent.max_iterations", cfg.Agent.MaxIterations)

	v.SetDefault("model.provider", cfg.Model.Provider)
	v.SetDefault("model.model", cfg.Model.Model)
	v.SetDefault("model.api_key", cfg.Model.APIKey)
	v.SetDefault("model.base_url", cfg.Model.BaseURL)
	v.SetDefault("model.temperature", cfg.Model.Temperature)
	v.SetDefault("model.max_tokens", cfg.Model.MaxTokens)
	v.SetDefault("model.max_retries", cfg.Model.MaxRetries)
	v.SetDefault("model.timeout", cfg.Model.Timeout)

	v.SetDefault("history.backend", cfg.History.Backend)
	v.SetDefault("history.dir", cfg.History.Dir)

	v.SetDefault("tools.enabled", cfg.Tools.Enabled)
	v.SetDefault("tools.timeout", cfg.Tools.Timeout)
	v.SetDefault("tools.workspace_root", cfg.Tools.WorkspaceRoot)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.pretty", cfg.Logging.Pretty)
	v.SetDefault("logging.redaction", cfg.Logging.Redaction)

	v.SetDefault("data_dir", cfg.DataDir)
}

// Save writes cfg to the loader's config path as JSON
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return fmt.Errorf("failed to resolve config path")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("agent", cfg.Agent)
	v.Set("model", cfg.Model)
	v.Set("history", cfg.History)
	v.Set("tools", cfg.Tools)
	v.Set("logging", cfg.Logging)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".onion", "onion.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
