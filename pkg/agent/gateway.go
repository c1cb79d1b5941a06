package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harun/onion/pkg/toolexecutor"
)

// Provider names accepted by NewGateway.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

const defaultMaxTokens = 4096

// ModelGateway sends a conversation plus tool schemas to a model backend.
// Errors are returned as *ModelUnavailableError.
type ModelGateway interface {
	Complete(ctx context.Context, conversation []Message, tools []toolexecutor.ToolSchema) (*ModelResponse, error)

	// Provider returns the provider name
	Provider() string
}

// ProviderConfig selects and configures a gateway.
type ProviderConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	// MaxRetries > 0 wraps the gateway in a RetryGateway.
	MaxRetries int
	Timeout    time.Duration
}

// NewGateway creates the gateway for cfg.Provider.
func NewGateway(ctx context.Context, cfg ProviderConfig) (ModelGateway, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	var (
		gw  ModelGateway
		err error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		gw = NewAnthropicGateway(cfg)
	case ProviderOpenAI:
		gw = NewOpenAIGateway(cfg)
	case ProviderGemini:
		gw, err = NewGeminiGateway(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxRetries > 0 {
		gw = NewRetryGateway(gw, RetryConfig{MaxRetries: cfg.MaxRetries})
	}

	return gw, nil
}

// ensureCallIDs assigns an id to every request the backend left without one.
func ensureCallIDs(reqs []ToolCallRequest) []ToolCallRequest {
	for i := range reqs {
		if reqs[i].ID == "" {
			reqs[i].ID = "call_" + uuid.NewString()
		}
		if reqs[i].Arguments == nil {
			reqs[i].Arguments = map[string]interface{}{}
		}
	}
	return reqs
}
