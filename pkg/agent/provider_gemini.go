package agent

import (
	"context"
	"fmt"

	"github.com/harun/onion/pkg/toolexecutor"
	"google.golang.org/genai"
)

// GeminiGateway implements ModelGateway for Google Gemini
type GeminiGateway struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewGeminiGateway creates a new Gemini gateway backed by the Gemini API.
func NewGeminiGateway(ctx context.Context, cfg ProviderConfig) (*GeminiGateway, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		clientCfg.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client for %s: %w", cfg.Model, err)
	}

	return &GeminiGateway{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Provider returns the provider name
func (g *GeminiGateway) Provider() string {
	return ProviderGemini
}

// Complete makes an API call to Google Gemini
func (g *GeminiGateway) Complete(ctx context.Context, conversation []Message, tools []toolexecutor.ToolSchema) (*ModelResponse, error) {
	config := &genai.GenerateContentConfig{}

	if system := systemPrompt(conversation); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if g.temperature > 0 {
		config.Temperature = genai.Ptr(float32(g.temperature))
	}
	if g.maxTokens > 0 {
		config.MaxOutputTokens = int32(g.maxTokens)
	}
	if len(tools) > 0 {
		config.Tools = geminiTools(tools)
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, geminiContents(conversation), config)
	if err != nil {
		return nil, unavailable(g.Provider(), err)
	}
	if len(response.Candidates) == 0 {
		return nil, unavailable(g.Provider(), fmt.Errorf("no candidates returned"))
	}

	requests := []ToolCallRequest{}
	for _, fc := range response.FunctionCalls() {
		requests = append(requests, ToolCallRequest{
			ID:        fc.ID,
			Name:      fc.Name,
			Arguments: fc.Args,
		})
	}

	result := &ModelResponse{
		Content:      response.Text(),
		ToolRequests: ensureCallIDs(requests),
	}
	if response.UsageMetadata != nil {
		result.Usage = &TokenUsage{
			InputTokens:  int(response.UsageMetadata.PromptTokenCount),
			OutputTokens: int(response.UsageMetadata.CandidatesTokenCount),
		}
	}

	return result, nil
}

// geminiContents converts the conversation. Function responses are grouped
// into a single user turn after the model turn that requested them.
func geminiContents(conversation []Message) []*genai.Content {
	contents := []*genai.Content{}
	var pending []*genai.Part

	flush := func() {
		if len(pending) > 0 {
			contents = append(contents, genai.NewContentFromParts(pending, genai.RoleUser))
			pending = nil
		}
	}

	for _, msg := range conversation {
		if msg.Role == RoleTool {
			key := "output"
			if msg.IsError {
				key = "error"
			}
			pending = append(pending, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     msg.Name,
					Response: map[string]any{key: msg.Content},
				},
			})
			continue
		}
		flush()

		switch msg.Role {
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			parts := []*genai.Part{}
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: tc.Arguments,
					},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		}
	}
	flush()

	return contents
}

func geminiTools(tools []toolexecutor.ToolSchema) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 tool.Name,
			Description:          tool.Description,
			ParametersJsonSchema: tool.Parameters,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
