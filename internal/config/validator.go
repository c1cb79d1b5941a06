package config

import (
	"fmt"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	case "gemini":
		if !strings.HasPrefix(key, "AIza") {
			return fmt.Errorf("invalid Gemini API key format (should start with AIza)")
		}
	}

	return nil
}

// ValidateProvider validates a model provider name
func (v *Validator) ValidateProvider(provider string) error {
	if !contains(validProviders, provider) {
		return fmt.Errorf("invalid provider: %s (must be one of: %s)", provider, strings.Join(validProviders, ", "))
	}
	return nil
}

// ValidateModel validates a model name. Unknown names are accepted.
func (v *Validator) ValidateModel(model string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateMaxIterations bounds the number of model rounds per task
func (v *Validator) ValidateMaxIterations(n int) error {
	if n <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", n)
	}
	if n > 100 {
		return fmt.Errorf("max iterations too large (max 100), got %d", n)
	}
	return nil
}

// ValidateAgentName rejects names that cannot be used as a storage key
func (v *Validator) ValidateAgentName(name string) error {
	if name == "" {
		return fmt.Errorf("agent name cannot be empty")
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("agent name %q contains path characters", name)
	}
	return nil
}

// ValidateHistoryBackend validates the trace store backend
func (v *Validator) ValidateHistoryBackend(backend string) error {
	if !contains(validBackends, backend) {
		return fmt.Errorf("invalid history backend: %s (must be one of: %s)", backend, strings.Join(validBackends, ", "))
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateAgentName(cfg.Agent.Name); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateMaxIterations(cfg.Agent.MaxIterations); err != nil {
		errors = append(errors, err)
	}

	if err := v.ValidateProvider(cfg.Model.Provider); err != nil {
		errors = append(errors, err)
	} else if err := v.ValidateAPIKey(cfg.Model.APIKey, cfg.Model.Provider); err != nil {
		errors = append(errors, fmt.Errorf("model: %w", err))
	}
	if err := v.ValidateModel(cfg.Model.Model); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateTemperature(cfg.Model.Temperature); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateMaxTokens(cfg.Model.MaxTokens); err != nil {
		errors = append(errors, err)
	}
	if cfg.Model.MaxRetries < 0 {
		errors = append(errors, fmt.Errorf("model.max_retries must be >= 0"))
	}
	if cfg.Tools.Timeout < 0 {
		errors = append(errors, fmt.Errorf("tools.timeout must be >= 0"))
	}

	if err := v.ValidateHistoryBackend(cfg.History.Backend); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
