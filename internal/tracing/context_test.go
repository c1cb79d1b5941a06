package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	if id1 == "" {
		t.Error("NewTraceID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTraceID returned duplicate IDs")
	}
}

func TestWithTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "test-trace-id")

	if got := GetTraceID(ctx); got != "test-trace-id" {
		t.Errorf("Expected trace ID test-trace-id, got %s", got)
	}
}

func TestGettersOnEmptyContext(t *testing.T) {
	ctx := context.Background()

	if GetTraceID(ctx) != "" || GetTaskID(ctx) != "" || GetAgentName(ctx) != "" {
		t.Error("expected empty values from a bare context")
	}
}

func TestNewTaskContext(t *testing.T) {
	t.Run("generates trace id", func(t *testing.T) {
		ctx := NewTaskContext(context.Background(), "assistant", "task-1")
		tc := FromContext(ctx)

		if tc.TraceID == "" {
			t.Error("expected trace id to be generated")
		}
		if tc.TaskID != "task-1" {
			t.Errorf("Expected task ID task-1, got %s", tc.TaskID)
		}
		if tc.AgentName != "assistant" {
			t.Errorf("Expected agent assistant, got %s", tc.AgentName)
		}
	})

	t.Run("keeps existing trace id", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "parent")
		ctx = NewTaskContext(ctx, "assistant", "task-2")

		if got := GetTraceID(ctx); got != "parent" {
			t.Errorf("Expected trace ID parent, got %s", got)
		}
	})
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := NewTaskContext(context.Background(), "assistant", "task-3")
	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("hello")

	out := buf.String()
	for _, want := range []string{`"task_id":"task-3"`, `"agent":"assistant"`, `"trace_id":`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log line to contain %s, got %s", want, out)
		}
	}
}
