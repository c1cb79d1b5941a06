package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/harun/onion/pkg/toolexecutor"
)

// AnthropicGateway implements ModelGateway for Anthropic Claude
type AnthropicGateway struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewAnthropicGateway creates a new Anthropic gateway
func NewAnthropicGateway(cfg ProviderConfig) *AnthropicGateway {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicGateway{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

// Provider returns the provider name
func (g *AnthropicGateway) Provider() string {
	return ProviderAnthropic
}

// Complete makes an API call to Anthropic Claude
func (g *AnthropicGateway) Complete(ctx context.Context, conversation []Message, tools []toolexecutor.ToolSchema) (*ModelResponse, error) {
	reqParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		Messages:  anthropicMessages(conversation),
		MaxTokens: int64(g.maxTokens),
	}

	if system := systemPrompt(conversation); system != "" {
		reqParams.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	if g.temperature > 0 {
		reqParams.Temperature = anthropic.Float(g.temperature)
	}

	if len(tools) > 0 {
		reqParams.Tools = anthropicTools(tools)
	}

	response, err := g.client.Messages.New(ctx, reqParams)
	if err != nil {
		return nil, unavailable(g.Provider(), err)
	}

	content := ""
	requests := []ToolCallRequest{}

	for _, block := range response.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += b.Text
		case anthropic.ToolUseBlock:
			var args map[string]interface{}
			if raw := b.JSON.Input.Raw(); raw != "" {
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					return nil, unavailable(g.Provider(), fmt.Errorf("failed to parse tool input: %w", err))
				}
			}
			requests = append(requests, ToolCallRequest{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
			})
		}
	}

	return &ModelResponse{
		Content:      content,
		ToolRequests: ensureCallIDs(requests),
		Usage: &TokenUsage{
			InputTokens:  int(response.Usage.InputTokens),
			OutputTokens: int(response.Usage.OutputTokens),
		},
	}, nil
}

// anthropicMessages converts the conversation, grouping consecutive tool
// results into one user turn as the Messages API expects.
func anthropicMessages(conversation []Message) []anthropic.MessageParam {
	out := []anthropic.MessageParam{}
	var pendingResults []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range conversation {
		if msg.Role == RoleTool {
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError))
			continue
		}
		flush()

		switch msg.Role {
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			blocks := []anthropic.ContentBlockParamUnion{}
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})
		}
	}
	flush()

	return out
}

func anthropicTools(tools []toolexecutor.ToolSchema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		properties, required := schemaParts(tool)

		toolParam := anthropic.ToolParam{
			Name: tool.Name,
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   required,
			},
		}
		if tool.Description != "" {
			toolParam.Description = anthropic.String(tool.Description)
		}

		out = append(out, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return out
}
