// Package providers implements the LLM completion client.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jarvis-assistant/jarvis/internal/schema"
)

// OpenRouterProvider makes direct HTTP calls to the OpenRouter
// chat-completions endpoint (OpenAI wire format).
type OpenRouterProvider struct {
	apiKey       string
	apiBase      string
	defaultModel string
	timeout      time.Duration
	httpClient   *http.Client
}

// NewOpenRouterProvider constructs a provider from raw config values.
// timeout bounds every Chat call; zero falls back to 8 seconds.
func NewOpenRouterProvider(apiKey, apiBase, defaultModel string, timeout time.Duration) *OpenRouterProvider {
	if apiBase == "" {
		apiBase = "https://openrouter.ai/api/v1"
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &OpenRouterProvider{
		apiKey:       apiKey,
		apiBase:      strings.TrimRight(apiBase, "/"),
		defaultModel: defaultModel,
		timeout:      timeout,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (p *OpenRouterProvider) DefaultModel() string { return p.defaultModel }

// Chat implements schema.LLMProvider. Transport failures, timeouts, and
// server-side errors come back as *schema.LLMUnavailableError; a rejected
// key comes back as *schema.AuthenticationError.
func (p *OpenRouterProvider) Chat(
	ctx context.Context,
	conversation schema.Conversation,
	tools []map[string]any,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	body := map[string]any{
		"model":       model,
		"messages":    conversationToWire(conversation),
		"max_tokens":  maxTokens,
		"temperature": opts.Temperature,
	}
	if len(tools) > 0 {
		body["tools"] = tools
		body["tool_choice"] = "auto"
	}

	data, err := json.Marshal(body)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiBase+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/jarvis-assistant/jarvis")
	req.Header.Set("X-Title", "jarvis")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return schema.LLMResponse{}, &schema.LLMUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return schema.LLMResponse{}, &schema.LLMUnavailableError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return schema.LLMResponse{}, &schema.AuthenticationError{Provider: "openrouter"}
	case resp.StatusCode != http.StatusOK:
		return schema.LLMResponse{}, &schema.LLMUnavailableError{
			Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, friendlyHTTPError(resp.StatusCode, raw)),
		}
	}

	return parseResponse(raw)
}

// Ping performs a lightweight reachability probe: list models with a short
// deadline. Used by the auth/health aggregator.
func (p *OpenRouterProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &schema.LLMUnavailableError{Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &schema.AuthenticationError{Provider: "openrouter"}
	}
	if resp.StatusCode != http.StatusOK {
		return &schema.LLMUnavailableError{Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Wire conversion
// ---------------------------------------------------------------------------

// turnToWire converts a typed Turn to the OpenAI wire-format map.
func turnToWire(t schema.Turn) map[string]any {
	wire := map[string]any{
		"role":    t.Role,
		"content": t.Content,
	}
	if t.Role == schema.RoleAssistant {
		// Strict backends require "content" even for tool-call-only turns.
		if t.Content == "" {
			wire["content"] = nil
		}
		if len(t.ToolCalls) > 0 {
			raw := make([]map[string]any, len(t.ToolCalls))
			for i, tc := range t.ToolCalls {
				raw[i] = tc.ToWireMap()
			}
			wire["tool_calls"] = raw
		}
	}
	if t.Role == schema.RoleTool {
		wire["tool_call_id"] = t.ToolCallID
		wire["name"] = t.ToolName
	}
	return wire
}

func conversationToWire(c schema.Conversation) []map[string]any {
	out := make([]map[string]any, 0, len(c.Turns))
	for _, t := range c.Turns {
		out = append(out, turnToWire(t))
	}
	return out
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

// respBody is the subset of the chat completion response we care about.
type respBody struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content   any `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func parseResponse(raw []byte) (schema.LLMResponse, error) {
	var body respBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.LLMResponse{}, &schema.LLMUnavailableError{Err: fmt.Errorf("parse response: %w", err)}
	}
	if len(body.Choices) == 0 {
		return schema.LLMResponse{}, &schema.LLMUnavailableError{Err: fmt.Errorf("empty choices in response")}
	}

	msg := body.Choices[0].Message

	var content *string
	if c, ok := msg.Content.(string); ok && c != "" {
		content = &c
	}

	var toolCalls []schema.ToolCallRequest
	for _, tc := range msg.ToolCalls {
		args, err := repairJSON(tc.Function.Arguments)
		if err != nil {
			slog.Warn("failed to parse tool arguments", "tool", tc.Function.Name, "err", err)
			args = map[string]any{}
		}
		toolCalls = append(toolCalls, schema.ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	finish := body.Choices[0].FinishReason
	if finish == "" {
		finish = "stop"
	}

	return schema.LLMResponse{
		Content:      content,
		ToolCalls:    toolCalls,
		FinishReason: finish,
		Model:        body.Model,
		Usage: map[string]int{
			"prompt_tokens":     body.Usage.PromptTokens,
			"completion_tokens": body.Usage.CompletionTokens,
			"total_tokens":      body.Usage.TotalTokens,
		},
	}, nil
}

// ---------------------------------------------------------------------------
// JSON repair
// ---------------------------------------------------------------------------

// repairJSON attempts to unmarshal JSON, retrying after stripping trailing
// garbage characters. This handles some LLMs that emit truncated tool arguments.
func repairJSON(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}

	// Attempt 1: trim trailing non-JSON characters.
	stripped := strings.TrimRight(raw, " \t\n\r}]")
	if !strings.HasSuffix(stripped, "}") {
		stripped += "}"
	}
	if err := json.Unmarshal([]byte(stripped), &out); err == nil {
		return out, nil
	}

	// Attempt 2: find the last complete JSON object.
	if i := strings.LastIndex(raw, "}"); i >= 0 {
		if err := json.Unmarshal([]byte(raw[:i+1]), &out); err == nil {
			return out, nil
		}
	}

	return map[string]any{}, fmt.Errorf("cannot repair JSON: %s", raw)
}

func friendlyHTTPError(code int, body []byte) string {
	if code == http.StatusTooManyRequests {
		return "rate limit exceeded"
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
