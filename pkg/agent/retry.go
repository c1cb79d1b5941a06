package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harun/onion/pkg/toolexecutor"
	"github.com/rs/zerolog/log"
)

// RetryConfig controls RetryGateway backoff.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// RetryGateway retries retryable failures of the wrapped gateway with
// exponential backoff.
type RetryGateway struct {
	next ModelGateway
	cfg  RetryConfig
}

// NewRetryGateway wraps next. Zero delays default to 1s base and 30s cap.
func NewRetryGateway(next ModelGateway, cfg RetryConfig) *RetryGateway {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &RetryGateway{next: next, cfg: cfg}
}

// Provider returns the wrapped provider name
func (g *RetryGateway) Provider() string {
	return g.next.Provider()
}

// Complete calls the wrapped gateway, retrying while errors are retryable.
func (g *RetryGateway) Complete(ctx context.Context, conversation []Message, tools []toolexecutor.ToolSchema) (*ModelResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		response, err := g.next.Complete(ctx, conversation, tools)
		if err == nil {
			return response, nil
		}

		lastErr = err

		if !IsRetryableError(err) {
			return nil, unavailable(g.Provider(), err)
		}

		if attempt == g.cfg.MaxRetries {
			break
		}

		delay := g.cfg.BaseDelay * time.Duration(1<<attempt)
		if delay > g.cfg.MaxDelay {
			delay = g.cfg.MaxDelay
		}
		log.Info().
			Str("provider", g.Provider()).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("Retrying model call after error")

		select {
		case <-ctx.Done():
			return nil, unavailable(g.Provider(), ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, unavailable(g.Provider(), fmt.Errorf("max retries (%d) exceeded: %w", g.cfg.MaxRetries, lastErr))
}

// IsRetryableError checks if an error should be retried
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())

	for _, marker := range []string{
		// Network errors
		"econnreset", "etimedout", "connection reset", "connection refused", "i/o timeout", "unexpected eof",
		// Rate limits
		"429", "rate limit", "overloaded",
		// Server errors
		"500", "502", "503", "504", "529",
	} {
		if strings.Contains(errMsg, marker) {
			return true
		}
	}

	return false
}
