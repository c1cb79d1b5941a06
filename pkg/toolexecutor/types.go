package toolexecutor

import (
	"context"
	"time"
)

// Parameter types understood by the adapter. TypeAny carries no constraint.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
	TypeAny     = "any"
)

var validTypes = map[string]bool{
	TypeString: true, TypeNumber: true, TypeInteger: true, TypeBoolean: true,
	TypeObject: true, TypeArray: true, TypeAny: true,
}

// ToolParameter defines a parameter for a tool
type ToolParameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolDefinition defines a tool's metadata and handler
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	Handler     ToolHandler     `json:"-"`
}

// ToolHandler is the function signature for tool execution
type ToolHandler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// ToolSchema is the backend-facing description of a tool: parameters is a
// JSON schema object.
type ToolSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ExecutionContext provides runtime information for tool execution
type ExecutionContext struct {
	AgentName  string
	TaskID     string
	CallID     string
	WorkingDir string
	Timeout    time.Duration
}

// ToolResult represents the result of a tool execution
type ToolResult struct {
	Success bool `json:"success"`
	// Output is the handler's return value, untouched.
	Output interface{} `json:"output,omitempty"`
	// Display is Output rendered as text for records and model feedback.
	Display   string                 `json:"display"`
	Error     string                 `json:"error,omitempty"`
	Err       *ToolInvocationError   `json:"-"`
	Truncated bool                   `json:"truncated,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Func builds a ToolDefinition from a handler with an explicit parameter list.
func Func(name, description string, params []ToolParameter, handler ToolHandler) ToolDefinition {
	return ToolDefinition{
		Name:        name,
		Description: description,
		Parameters:  params,
		Handler:     handler,
	}
}
