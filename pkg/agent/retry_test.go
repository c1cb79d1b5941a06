package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("429 Too Many Requests"), true},
		{"server error", errors.New("POST /v1/messages: 503 Service Unavailable"), true},
		{"overloaded", errors.New("Overloaded"), true},
		{"reset", errors.New("read: connection reset by peer"), true},
		{"auth", errors.New("401 Unauthorized"), false},
		{"bad request", errors.New("400 invalid tool schema"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

func TestRetryGateway(t *testing.T) {
	t.Run("retries until success", func(t *testing.T) {
		attempts := 0
		gw := &scriptedGateway{repeat: true, steps: []step{func([]Message) (*ModelResponse, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("503 Service Unavailable")
			}
			return &ModelResponse{Content: "ok"}, nil
		}}}

		retry := NewRetryGateway(gw, RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond})
		resp, err := retry.Complete(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Content)
		assert.Equal(t, 3, attempts)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		gw := &scriptedGateway{repeat: true, steps: []step{func([]Message) (*ModelResponse, error) {
			return nil, errors.New("401 Unauthorized")
		}}}

		retry := NewRetryGateway(gw, RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond})
		_, err := retry.Complete(context.Background(), nil, nil)

		var mu *ModelUnavailableError
		require.ErrorAs(t, err, &mu)
		assert.Equal(t, 1, gw.calls())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		gw := &scriptedGateway{repeat: true, steps: []step{func([]Message) (*ModelResponse, error) {
			return nil, errors.New("429 rate limit")
		}}}

		retry := NewRetryGateway(gw, RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond})
		_, err := retry.Complete(context.Background(), nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max retries (2) exceeded")
		assert.Equal(t, 3, gw.calls())
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		gw := &scriptedGateway{repeat: true, steps: []step{func([]Message) (*ModelResponse, error) {
			return nil, errors.New("502 Bad Gateway")
		}}}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		retry := NewRetryGateway(gw, RetryConfig{MaxRetries: 5, BaseDelay: time.Hour})
		_, err := retry.Complete(ctx, nil, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, gw.calls())
	})
}
