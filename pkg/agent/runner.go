package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harun/onion/internal/observability"
	"github.com/harun/onion/internal/tracing"
	"github.com/harun/onion/pkg/history"
	"github.com/harun/onion/pkg/toolexecutor"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultMaxIterations bounds model calls per task.
	DefaultMaxIterations = 10
	// DefaultSystemPrompt is used when Config.SystemPrompt is empty.
	DefaultSystemPrompt = "You are a helpful assistant."

	tracerName = "onion.agent"
)

// Config holds agent configuration
type Config struct {
	Name     string
	Gateway  ModelGateway
	Tools    *toolexecutor.ToolExecutor
	Recorder history.Recorder

	SystemPrompt  string
	MaxIterations int
	// ToolTimeout bounds each tool call; zero uses the executor default.
	ToolTimeout time.Duration
	WorkingDir  string
	Logger      zerolog.Logger
}

// Agent runs tasks against a model gateway with a fixed tool set.
type Agent struct {
	name          string
	gateway       ModelGateway
	tools         *toolexecutor.ToolExecutor
	recorder      history.Recorder
	systemPrompt  string
	maxIterations int
	toolTimeout   time.Duration
	workingDir    string
	logger        zerolog.Logger
}

// New creates a new agent
func New(cfg Config) (*Agent, error) {
	observability.EnsureRegistered()

	if err := history.ValidateAgentName(cfg.Name); err != nil {
		return nil, fmt.Errorf("invalid agent name: %w", err)
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("model gateway is required")
	}
	if cfg.Recorder == nil {
		return nil, fmt.Errorf("history recorder is required")
	}
	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("max iterations cannot be negative")
	}

	tools := cfg.Tools
	if tools == nil {
		tools = toolexecutor.New()
	}
	maxIterations := cfg.MaxIterations
	if maxIterations == 0 {
		maxIterations = DefaultMaxIterations
	}
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	return &Agent{
		name:          cfg.Name,
		gateway:       cfg.Gateway,
		tools:         tools,
		recorder:      cfg.Recorder,
		systemPrompt:  systemPrompt,
		maxIterations: maxIterations,
		toolTimeout:   cfg.ToolTimeout,
		workingDir:    cfg.WorkingDir,
		logger:        cfg.Logger.With().Str("component", "agent").Str("agent", cfg.Name).Logger(),
	}, nil
}

// Name returns the agent name that keys its history.
func (a *Agent) Name() string {
	return a.name
}

// ListTools returns registered tool names in registration order.
func (a *Agent) ListTools() []string {
	return a.tools.ListTools()
}

// History returns the recorder the agent appends to.
func (a *Agent) History() history.Recorder {
	return a.recorder
}

// runState accumulates what a single Run observed.
type runState struct {
	taskID       string
	conversation []Message
	calls        []history.ToolCallRecord
	rounds       int
	result       string
	status       string
	failure      error
}

// Run executes task to completion and persists its TaskRecord. The returned
// string is the final answer or a failure description; the error is non-nil
// only when the record could not be persisted.
func (a *Agent) Run(ctx context.Context, task string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()

	taskID, err := gonanoid.New()
	if err != nil {
		taskID = uuid.NewString()
	}

	ctx = tracing.NewTaskContext(ctx, a.name, taskID)
	ctx, span := tracing.StartSpan(ctx, tracerName, "agent.run",
		attribute.String("agent", a.name),
		attribute.String("task_id", taskID),
		attribute.String("provider", a.gateway.Provider()),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, a.logger)

	logger.Info().Str("task", task).Msg("Task started")

	state := &runState{
		taskID: taskID,
		conversation: []Message{
			{Role: RoleSystem, Content: a.systemPrompt},
			{Role: RoleUser, Content: task},
		},
		calls: []history.ToolCallRecord{},
	}

	a.loop(ctx, state, logger)

	duration := time.Since(start)
	if duration <= 0 {
		duration = time.Nanosecond
	}

	span.SetAttributes(
		attribute.String("status", state.status),
		attribute.Int("rounds", state.rounds),
		attribute.Int("tool_calls", len(state.calls)),
	)
	tracing.FailSpan(span, state.failure)
	observability.RecordTaskRun(a.name, state.status, duration, state.rounds)

	record := history.TaskRecord{
		Timestamp:       start.UTC(),
		Task:            task,
		ToolCalls:       state.calls,
		Result:          state.result,
		DurationSeconds: duration.Seconds(),
		Status:          state.status,
		TaskID:          taskID,
	}

	// Persist even when the caller's context is already done.
	if err := a.recorder.Append(context.WithoutCancel(ctx), record); err != nil {
		tracing.FailSpan(span, err)
		logger.Error().Err(err).Msg("Failed to persist task record")
		return state.result, fmt.Errorf("failed to persist task record: %w", err)
	}

	event := logger.Info()
	if state.failure != nil {
		event = logger.Warn().Err(state.failure)
	}
	event.
		Str("status", state.status).
		Int("rounds", state.rounds).
		Int("tool_calls", len(state.calls)).
		Dur("duration", duration).
		Msg("Task finished")

	return state.result, nil
}

// loop drives AwaitingModel and DispatchingTools until the run is done or failed.
func (a *Agent) loop(ctx context.Context, state *runState, logger zerolog.Logger) {
	schemas := a.tools.Schemas()

	for state.rounds < a.maxIterations {
		state.rounds++

		response, err := a.complete(ctx, state.conversation, schemas)
		if err != nil {
			state.fail(err, fmt.Sprintf("Task failed: model unavailable: %v", err))
			logger.Warn().Err(err).Int("round", state.rounds).Msg("Model unavailable")
			return
		}

		if response.IsFinal() {
			state.result = response.Content
			state.status = history.StatusDone
			return
		}

		logger.Debug().
			Int("round", state.rounds).
			Int("requests", len(response.ToolRequests)).
			Msg("Dispatching tool requests")

		requests := make([]ToolCallRequest, len(response.ToolRequests))
		copy(requests, response.ToolRequests)
		state.conversation = append(state.conversation, Message{
			Role:      RoleAssistant,
			Content:   response.Content,
			ToolCalls: requests,
		})

		for _, req := range requests {
			a.dispatch(ctx, state, req, logger)
		}
	}

	boundErr := &LoopBoundExceededError{Limit: a.maxIterations}
	state.fail(boundErr, "Task failed: "+boundErr.Error())
	logger.Warn().Int("limit", a.maxIterations).Msg("Round limit reached with pending tool requests")
}

// complete performs one model call. A cancelled context counts as the model
// being unavailable.
func (a *Agent) complete(ctx context.Context, conversation []Message, schemas []toolexecutor.ToolSchema) (*ModelResponse, error) {
	provider := a.gateway.Provider()

	if err := ctx.Err(); err != nil {
		return nil, unavailable(provider, err)
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "model.complete",
		attribute.String("provider", provider),
		attribute.Int("messages", len(conversation)),
	)
	defer span.End()

	start := time.Now()
	response, err := a.gateway.Complete(ctx, conversation, schemas)
	if err == nil && response == nil {
		err = fmt.Errorf("empty response")
	}
	observability.RecordModelCall(provider, time.Since(start), err == nil)

	if err != nil {
		err = unavailable(provider, err)
		tracing.FailSpan(span, err)
		return nil, err
	}
	return response, nil
}

// dispatch runs one tool request and appends both its record and the tool
// message answering it.
func (a *Agent) dispatch(ctx context.Context, state *runState, req ToolCallRequest, logger zerolog.Logger) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "tool.execute",
		attribute.String("tool", req.Name),
		attribute.String("call_id", req.ID),
	)
	defer span.End()

	result := a.tools.Execute(ctx, req.Name, req.Arguments, &toolexecutor.ExecutionContext{
		AgentName:  a.name,
		TaskID:     state.taskID,
		CallID:     req.ID,
		WorkingDir: a.workingDir,
		Timeout:    a.toolTimeout,
	})

	record := history.ToolCallRecord{
		Name:      req.Name,
		Arguments: req.Arguments,
		CallID:    req.ID,
		Result:    result.Display,
		Status:    history.ToolStatusSuccess,
	}
	message := Message{
		Role:       RoleTool,
		Content:    result.Display,
		ToolCallID: req.ID,
		Name:       req.Name,
	}

	if !result.Success {
		record.Status = history.ToolStatusError
		record.ErrorMessage = result.Error
		record.Result = "Error: " + result.Error
		message.Content = record.Result
		message.IsError = true
		if result.Err != nil {
			tracing.FailSpan(span, result.Err)
		}
		logger.Debug().Str("tool", req.Name).Str("error", result.Error).Msg("Tool call failed")
	}

	if record.Arguments == nil {
		record.Arguments = map[string]interface{}{}
	}

	state.calls = append(state.calls, record)
	state.conversation = append(state.conversation, message)
}

func (s *runState) fail(err error, result string) {
	s.failure = err
	s.result = result
	s.status = history.StatusFailed
}
