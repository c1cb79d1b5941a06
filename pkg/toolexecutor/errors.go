package toolexecutor

import (
	"errors"
	"fmt"
)

// Reasons a tool invocation can fail.
const (
	ReasonUnknownTool     = "unknown_tool"
	ReasonMissingArgument = "missing_argument"
	ReasonInvalidArgument = "invalid_argument"
	ReasonToolFailed      = "tool_failed"
	ReasonTimeout         = "timeout"
)

// ToolInvocationError describes why a tool call could not produce a result.
type ToolInvocationError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *ToolInvocationError) Error() string {
	switch e.Reason {
	case ReasonUnknownTool:
		return fmt.Sprintf("tool not found: %s", e.Tool)
	case ReasonMissingArgument, ReasonInvalidArgument:
		return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
	case ReasonTimeout:
		return fmt.Sprintf("tool %s timed out: %v", e.Tool, e.Err)
	default:
		return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
	}
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Err
}

func newInvocationError(tool, reason string, err error) *ToolInvocationError {
	return &ToolInvocationError{Tool: tool, Reason: reason, Err: err}
}

// IsInvocationError reports whether err is, or wraps, a ToolInvocationError.
func IsInvocationError(err error) bool {
	var invErr *ToolInvocationError
	return errors.As(err, &invErr)
}
