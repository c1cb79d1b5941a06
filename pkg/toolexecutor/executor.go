package toolexecutor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harun/onion/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// DefaultTimeout bounds a single handler invocation when the execution
// context does not set one.
const DefaultTimeout = 30 * time.Second

// ToolExecutor manages and executes tools
type ToolExecutor struct {
	tools   map[string]*ToolDefinition
	schemas map[string]*gojsonschema.Schema
	exports map[string]map[string]interface{}
	order   []string
	mu      sync.RWMutex
}

// New creates a new ToolExecutor
func New() *ToolExecutor {
	te := &ToolExecutor{
		tools:   make(map[string]*ToolDefinition),
		schemas: make(map[string]*gojsonschema.Schema),
		exports: make(map[string]map[string]interface{}),
	}

	log.Debug().Msg("Tool executor initialized")

	return te
}

// RegisterTool registers a new tool. A tool registered under an existing name
// replaces the earlier one but keeps its position in Schemas.
func (te *ToolExecutor) RegisterTool(def ToolDefinition) error {
	def.Parameters = normalizeParameters(def.Parameters)

	if err := te.validateToolDefinition(def); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	schemaMap := buildSchemaMap(def)
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	te.mu.Lock()
	defer te.mu.Unlock()

	if _, exists := te.tools[def.Name]; exists {
		log.Warn().Str("tool", def.Name).Msg("Tool re-registered, replacing previous definition")
	} else {
		te.order = append(te.order, def.Name)
	}

	te.tools[def.Name] = &def
	te.schemas[def.Name] = schema
	te.exports[def.Name] = schemaMap

	log.Debug().Str("tool", def.Name).Int("params", len(def.Parameters)).Msg("Tool registered")

	return nil
}

// RegisterTools registers each definition in order, stopping at the first error.
func (te *ToolExecutor) RegisterTools(defs ...ToolDefinition) error {
	for _, def := range defs {
		if err := te.RegisterTool(def); err != nil {
			return fmt.Errorf("register %q: %w", def.Name, err)
		}
	}
	return nil
}

// GetTool returns a tool definition by name
func (te *ToolExecutor) GetTool(name string) *ToolDefinition {
	te.mu.RLock()
	defer te.mu.RUnlock()

	return te.tools[name]
}

// ListTools returns all registered tool names in registration order
func (te *ToolExecutor) ListTools() []string {
	te.mu.RLock()
	defer te.mu.RUnlock()

	tools := make([]string, len(te.order))
	copy(tools, te.order)

	return tools
}

// GetToolCount returns the number of registered tools
func (te *ToolExecutor) GetToolCount() int {
	te.mu.RLock()
	defer te.mu.RUnlock()

	return len(te.tools)
}

// Schemas returns the backend-facing description of every tool, in
// registration order. The returned maps are copies.
func (te *ToolExecutor) Schemas() []ToolSchema {
	te.mu.RLock()
	defer te.mu.RUnlock()

	out := make([]ToolSchema, 0, len(te.order))
	for _, name := range te.order {
		def := te.tools[name]
		out = append(out, ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  copySchema(te.exports[name]),
		})
	}

	return out
}

// Execute runs the named tool with the given arguments. Failures never
// escape as Go errors; they are carried in the result.
func (te *ToolExecutor) Execute(ctx context.Context, toolName string, params map[string]interface{}, execCtx *ExecutionContext) ToolResult {
	startTime := time.Now()

	te.mu.RLock()
	tool := te.tools[toolName]
	schema := te.schemas[toolName]
	te.mu.RUnlock()

	if tool == nil {
		log.Warn().Str("tool", toolName).Msg("Tool not found")
		return te.fail(toolName, startTime, newInvocationError(toolName, ReasonUnknownTool, nil))
	}

	args, err := prepareArguments(tool.Parameters, params)
	if err != nil {
		log.Warn().Str("tool", toolName).Err(err).Msg("Argument preparation failed")
		return te.fail(toolName, startTime, err.withTool(toolName))
	}

	if err := te.validateParameters(schema, args); err != nil {
		log.Warn().Str("tool", toolName).Err(err).Msg("Parameter validation failed")
		return te.fail(toolName, startTime, newInvocationError(toolName, ReasonInvalidArgument, err))
	}

	timeout := DefaultTimeout
	if execCtx != nil && execCtx.Timeout > 0 {
		timeout = execCtx.Timeout
	}

	if ctx == nil {
		ctx = context.Background()
	}
	timeoutCtx, cancel := context.WithTimeout(ContextWithExecContext(ctx, execCtx), timeout)
	defer cancel()

	log.Debug().Str("tool", toolName).Dur("timeout", timeout).Msg("Executing tool")

	type outcome struct {
		result interface{}
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		result, err := tool.Handler(timeoutCtx, args)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if timeoutCtx.Err() == context.DeadlineExceeded {
				return te.fail(toolName, startTime, newInvocationError(toolName, ReasonTimeout, fmt.Errorf("after %v: %w", timeout, out.err)))
			}
			return te.fail(toolName, startTime, newInvocationError(toolName, ReasonToolFailed, out.err))
		}

		duration := time.Since(startTime)
		display, truncated := truncateDisplay(FormatOutput(out.result))
		observability.RecordToolExecution(toolName, duration, true)

		log.Debug().
			Str("tool", toolName).
			Dur("duration", duration).
			Bool("truncated", truncated).
			Msg("Tool execution completed")

		return ToolResult{
			Success:   true,
			Output:    out.result,
			Display:   display,
			Truncated: truncated,
			Duration:  duration,
			Metadata: map[string]interface{}{
				"duration": duration.Milliseconds(),
			},
		}

	case <-timeoutCtx.Done():
		cause := timeoutCtx.Err()
		reason := ReasonTimeout
		if cause == context.Canceled {
			reason = ReasonToolFailed
		}
		return te.fail(toolName, startTime, newInvocationError(toolName, reason, fmt.Errorf("after %v: %w", timeout, cause)))
	}
}

func (te *ToolExecutor) fail(toolName string, startTime time.Time, invErr *ToolInvocationError) ToolResult {
	duration := time.Since(startTime)
	observability.RecordToolExecution(toolName, duration, false)

	log.Debug().
		Str("tool", toolName).
		Str("reason", invErr.Reason).
		Dur("duration", duration).
		Err(invErr).
		Msg("Tool execution failed")

	return ToolResult{
		Success:  false,
		Error:    invErr.Error(),
		Err:      invErr,
		Duration: duration,
		Metadata: map[string]interface{}{
			"duration": duration.Milliseconds(),
			"reason":   invErr.Reason,
		},
	}
}

// validateToolDefinition validates a tool definition
func (te *ToolExecutor) validateToolDefinition(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if strings.ContainsAny(def.Name, " \t\n") {
		return fmt.Errorf("tool name %q cannot contain whitespace", def.Name)
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	seen := make(map[string]bool, len(def.Parameters))
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if seen[param.Name] {
			return fmt.Errorf("duplicate parameter %s", param.Name)
		}
		seen[param.Name] = true

		if !validTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
		}
	}

	return nil
}

func normalizeParameters(params []ToolParameter) []ToolParameter {
	out := make([]ToolParameter, len(params))
	for i, p := range params {
		if p.Type == "" {
			p.Type = TypeAny
		}
		out[i] = p
	}
	return out
}

// buildSchemaMap generates a JSON Schema object from tool parameters
func buildSchemaMap(def ToolDefinition) map[string]interface{} {
	properties := make(map[string]interface{}, len(def.Parameters))
	required := []string{}

	for _, param := range def.Parameters {
		paramSchema := map[string]interface{}{}
		if param.Type != TypeAny {
			paramSchema["type"] = param.Type
		}
		if param.Description != "" {
			paramSchema["description"] = param.Description
		}
		if param.Default != nil {
			paramSchema["default"] = param.Default
		}

		properties[param.Name] = paramSchema

		if param.Required {
			required = append(required, param.Name)
		}
	}

	schemaMap := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	return schemaMap
}

// validateParameters validates parameters against a JSON Schema
func (te *ToolExecutor) validateParameters(schema *gojsonschema.Schema, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return err
	}

	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		sort.Strings(errs)
		return fmt.Errorf("validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func copySchema(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = copySchema(val)
		case []string:
			out[k] = append([]string(nil), val...)
		default:
			out[k] = val
		}
	}
	return out
}
