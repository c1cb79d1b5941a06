package history

import (
	"fmt"
	"strings"
	"time"
)

// Task outcome values stored in TaskRecord.Status.
const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

// Tool call outcome values stored in ToolCallRecord.Status.
const (
	ToolStatusSuccess = "success"
	ToolStatusError   = "error"
)

// ToolCallRecord is one executed tool invocation within a task.
type ToolCallRecord struct {
	Name         string                 `json:"name"`
	Arguments    map[string]interface{} `json:"arguments"`
	CallID       string                 `json:"call_id"`
	Result       string                 `json:"result"`
	Status       string                 `json:"status"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}

// TaskRecord is the durable trace of one task execution.
type TaskRecord struct {
	Timestamp       time.Time        `json:"timestamp"`
	Task            string           `json:"task"`
	ToolCalls       []ToolCallRecord `json:"tool_calls"`
	Result          string           `json:"result"`
	DurationSeconds float64          `json:"duration_seconds"`
	Status          string           `json:"status,omitempty"`
	TaskID          string           `json:"task_id,omitempty"`
}

// Failed reports whether the task ended in the failed state.
func (r TaskRecord) Failed() bool {
	return r.Status == StatusFailed
}

// Clone returns a deep copy of the record.
func (r TaskRecord) Clone() TaskRecord {
	out := r
	out.ToolCalls = make([]ToolCallRecord, len(r.ToolCalls))
	for i, tc := range r.ToolCalls {
		tc.Arguments = cloneMap(tc.Arguments)
		out.ToolCalls[i] = tc
	}
	return out
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}

func cloneRecords(in []TaskRecord) []TaskRecord {
	out := make([]TaskRecord, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// ValidateAgentName rejects names that cannot safely key a file, bucket or row.
func ValidateAgentName(name string) error {
	if name == "" {
		return fmt.Errorf("agent name cannot be empty")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("agent name cannot contain '..'")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("agent name cannot contain path separators")
	}
	if strings.Contains(name, "\x00") {
		return fmt.Errorf("agent name cannot contain null bytes")
	}
	return nil
}

func validateRecord(r TaskRecord) error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("record timestamp cannot be zero")
	}
	if r.DurationSeconds < 0 {
		return fmt.Errorf("record duration cannot be negative")
	}
	for i, tc := range r.ToolCalls {
		if tc.Name == "" {
			return fmt.Errorf("tool call %d has no name", i)
		}
		if tc.Status != ToolStatusSuccess && tc.Status != ToolStatusError {
			return fmt.Errorf("tool call %d has invalid status %q", i, tc.Status)
		}
	}
	return nil
}
