package agent

import (
	"github.com/harun/onion/pkg/toolexecutor"
)

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCallRequest is a model's request to run one tool. ID is opaque and is
// only echoed back with the matching result.
type ToolCallRequest struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Message represents a message in the conversation
type Message struct {
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	ToolCalls  []ToolCallRequest `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	// Name is the tool that produced a tool message.
	Name    string `json:"name,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ModelResponse is either a final answer or a set of tool requests.
type ModelResponse struct {
	Content      string            `json:"content"`
	ToolRequests []ToolCallRequest `json:"tool_requests,omitempty"`
	Usage        *TokenUsage       `json:"usage,omitempty"`
}

// IsFinal reports whether the response carries no tool requests.
func (r *ModelResponse) IsFinal() bool {
	return len(r.ToolRequests) == 0
}

// schemaParts splits a tool schema into the pieces provider SDKs ask for.
func schemaParts(s toolexecutor.ToolSchema) (properties map[string]interface{}, required []string) {
	properties, _ = s.Parameters["properties"].(map[string]interface{})
	if properties == nil {
		properties = map[string]interface{}{}
	}
	switch req := s.Parameters["required"].(type) {
	case []string:
		required = req
	case []interface{}:
		for _, v := range req {
			if name, ok := v.(string); ok {
				required = append(required, name)
			}
		}
	}
	return properties, required
}

// systemPrompt returns the content of the first system message.
func systemPrompt(conversation []Message) string {
	for _, msg := range conversation {
		if msg.Role == RoleSystem {
			return msg.Content
		}
	}
	return ""
}
