package schema

import (
	"context"
	"encoding/json"
)

// ChatOptions configures a single LLM chat request.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewChatOptions builds ChatOptions from individual settings.
func NewChatOptions(model string, maxTokens int, temperature float64) ChatOptions {
	return ChatOptions{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// ToolCallRequest represents one tool invocation requested by the LLM.
type ToolCallRequest struct {
	ID        string         `json:"callId"`
	Name      string         `json:"toolName"`
	Arguments map[string]any `json:"arguments"`
}

// ToWireMap serialises a ToolCallRequest into the OpenAI wire-format map.
// Used by provider implementations when building the JSON request body.
func (tc ToolCallRequest) ToWireMap() map[string]any {
	argsJSON, _ := json.Marshal(tc.Arguments)
	return map[string]any{
		"id":   tc.ID,
		"type": "function",
		"function": map[string]any{
			"name":      tc.Name,
			"arguments": string(argsJSON),
		},
	}
}

// LLMResponse is the normalised response from the LLM backend.
// Exactly one of Content/ToolCalls is meaningfully populated: the model
// either answers directly or requests tools.
type LLMResponse struct {
	Content      *string // nil when the response contains only tool calls
	ToolCalls    []ToolCallRequest
	FinishReason string
	Model        string
	Usage        map[string]int // "prompt_tokens", "completion_tokens", "total_tokens"
}

// HasToolCalls reports whether the response contains at least one tool call.
func (r LLMResponse) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Text returns the response content or "" when only tool calls are present.
func (r LLMResponse) Text() string {
	if r.Content == nil {
		return ""
	}
	return *r.Content
}

// LLMProvider is the interface the LLM backend must satisfy.
type LLMProvider interface {
	Chat(ctx context.Context, conversation Conversation, tools []map[string]any, opts ChatOptions) (LLMResponse, error)
	DefaultModel() string
}
