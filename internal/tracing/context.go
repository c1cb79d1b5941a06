package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// TaskIDKey is the context key for the id of the task being executed
	TaskIDKey ContextKey = "task_id"
	// AgentNameKey is the context key for agent name
	AgentNameKey ContextKey = "agent_name"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID   string
	TaskID    string
	AgentName string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithTaskID adds a task ID to the context
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, TaskIDKey, taskID)
}

// WithAgentName adds an agent name to the context
func WithAgentName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, AgentNameKey, name)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetTaskID retrieves the task ID from the context
func GetTaskID(ctx context.Context) string {
	if taskID, ok := ctx.Value(TaskIDKey).(string); ok {
		return taskID
	}
	return ""
}

// GetAgentName retrieves the agent name from the context
func GetAgentName(ctx context.Context) string {
	if name, ok := ctx.Value(AgentNameKey).(string); ok {
		return name
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:   GetTraceID(ctx),
		TaskID:    GetTaskID(ctx),
		AgentName: GetAgentName(ctx),
	}
}

// NewTaskContext starts tracing for one task run. An existing trace ID is kept.
func NewTaskContext(ctx context.Context, agentName, taskID string) context.Context {
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, NewTraceID())
	}
	ctx = WithAgentName(ctx, agentName)
	return WithTaskID(ctx, taskID)
}

// LoggerFromContext returns baseLogger enriched with the tracing fields in ctx.
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)
	logCtx := baseLogger.With()
	if tc.TraceID != "" {
		logCtx = logCtx.Str("trace_id", tc.TraceID)
	}
	if tc.TaskID != "" {
		logCtx = logCtx.Str("task_id", tc.TaskID)
	}
	if tc.AgentName != "" {
		logCtx = logCtx.Str("agent", tc.AgentName)
	}
	return logCtx.Logger()
}
