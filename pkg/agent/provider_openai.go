package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harun/onion/pkg/toolexecutor"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIGateway implements ModelGateway for OpenAI chat completions
type OpenAIGateway struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAIGateway creates a new OpenAI gateway
func NewOpenAIGateway(cfg ProviderConfig) *OpenAIGateway {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenAIGateway{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Provider returns the provider name
func (g *OpenAIGateway) Provider() string {
	return ProviderOpenAI
}

// Complete makes an API call to OpenAI
func (g *OpenAIGateway) Complete(ctx context.Context, conversation []Message, tools []toolexecutor.ToolSchema) (*ModelResponse, error) {
	messages, err := openAIMessages(conversation)
	if err != nil {
		return nil, unavailable(g.Provider(), err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: messages,
	}

	if g.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(g.maxTokens))
	}

	if g.temperature > 0 {
		params.Temperature = openai.Float(g.temperature)
	}

	if len(tools) > 0 {
		params.Tools = openAITools(tools)
	}

	response, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, unavailable(g.Provider(), err)
	}

	if len(response.Choices) == 0 {
		return nil, unavailable(g.Provider(), fmt.Errorf("no response choices returned"))
	}

	choice := response.Choices[0]

	requests := []ToolCallRequest{}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, unavailable(g.Provider(), fmt.Errorf("failed to parse tool arguments: %w", err))
			}
		}

		requests = append(requests, ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return &ModelResponse{
		Content:      choice.Message.Content,
		ToolRequests: ensureCallIDs(requests),
		Usage: &TokenUsage{
			InputTokens:  int(response.Usage.PromptTokens),
			OutputTokens: int(response.Usage.CompletionTokens),
		},
	}, nil
}

func openAIMessages(conversation []Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}

	for _, msg := range conversation {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(msg.Content))
				continue
			}

			toolCalls := []openai.ChatCompletionMessageToolCall{}
			for _, tc := range msg.ToolCalls {
				argsJSON, err := json.Marshal(tc.Arguments)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
				}

				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunction{
						Name:      tc.Name,
						Arguments: string(argsJSON),
					},
				})
			}

			assistantMsg := openai.ChatCompletionMessage{
				Role:      "assistant",
				Content:   msg.Content,
				ToolCalls: toolCalls,
			}
			messages = append(messages, assistantMsg.ToParam())
		case RoleTool:
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}

	return messages, nil
}

func openAITools(tools []toolexecutor.ToolSchema) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, tool := range tools {
		fn := openai.FunctionDefinitionParam{
			Name:       tool.Name,
			Parameters: openai.FunctionParameters(tool.Parameters),
		}
		if tool.Description != "" {
			fn.Description = openai.String(tool.Description)
		}
		out = append(out, openai.ChatCompletionToolParam{
			Type:     "function",
			Function: fn,
		})
	}
	return out
}
