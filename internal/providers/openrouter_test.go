package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarvis-assistant/jarvis/internal/schema"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenRouterProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenRouterProvider("test-key", srv.URL, "test/model", 2*time.Second)
}

func simpleConversation() schema.Conversation {
	conv := schema.NewConversation()
	conv.AddSystem("You are a test assistant.")
	conv.AddUser("hello")
	return conv
}

func TestChat_TextResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "test/model",
			"choices": [{"message": {"content": "Hello there."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	})

	resp, err := p.Chat(context.Background(), simpleConversation(), nil, schema.ChatOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.HasToolCalls() {
		t.Fatal("expected no tool calls")
	}
	if resp.Text() != "Hello there." {
		t.Errorf("unexpected text: %q", resp.Text())
	}
	if resp.Usage["total_tokens"] != 13 {
		t.Errorf("unexpected usage: %v", resp.Usage)
	}
}

func TestChat_ToolCallResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"content": null, "tool_calls": [
				{"id": "call_1", "function": {"name": "get_bills_due_soon", "arguments": "{\"days\": 7}"}}
			]}, "finish_reason": "tool_calls"}]
		}`))
	})

	resp, err := p.Chat(context.Background(), simpleConversation(), nil, schema.ChatOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.HasToolCalls() {
		t.Fatal("expected tool calls")
	}
	tc := resp.ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "get_bills_due_soon" {
		t.Errorf("unexpected tool call: %+v", tc)
	}
	if days, ok := tc.Arguments["days"].(float64); !ok || days != 7 {
		t.Errorf("unexpected arguments: %v", tc.Arguments)
	}
}

func TestChat_ServerError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := p.Chat(context.Background(), simpleConversation(), nil, schema.ChatOptions{})
	var unavailable *schema.LLMUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected LLMUnavailableError, got %v", err)
	}
}

func TestChat_Unauthorized(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	_, err := p.Chat(context.Background(), simpleConversation(), nil, schema.ChatOptions{})
	var authErr *schema.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if authErr.Provider != "openrouter" {
		t.Errorf("unexpected provider: %q", authErr.Provider)
	}
}

func TestChat_Timeout(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	p.timeout = 20 * time.Millisecond
	p.httpClient.Timeout = 20 * time.Millisecond

	_, err := p.Chat(context.Background(), simpleConversation(), nil, schema.ChatOptions{})
	var unavailable *schema.LLMUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected LLMUnavailableError on timeout, got %v", err)
	}
}

func TestRepairJSON(t *testing.T) {
	args, err := repairJSON(`{"days": 7}`)
	if err != nil || args["days"].(float64) != 7 {
		t.Errorf("valid JSON should parse: %v %v", args, err)
	}

	args, err = repairJSON(`{"query": "netflix"}garbage`)
	if err != nil || args["query"] != "netflix" {
		t.Errorf("trailing garbage should be repaired: %v %v", args, err)
	}

	args, err = repairJSON("")
	if err != nil || len(args) != 0 {
		t.Errorf("empty arguments should yield empty map: %v %v", args, err)
	}
}

func TestTurnToWire_ToolResult(t *testing.T) {
	wire := turnToWire(schema.Turn{
		Role:       schema.RoleTool,
		Content:    "3 bills due",
		ToolCallID: "call_9",
		ToolName:   "get_bills_due_soon",
	})
	if wire["tool_call_id"] != "call_9" || wire["name"] != "get_bills_due_soon" {
		t.Errorf("unexpected wire map: %v", wire)
	}
}

func TestTurnToWire_AssistantToolCallsOnly(t *testing.T) {
	wire := turnToWire(schema.Turn{
		Role:      schema.RoleAssistant,
		ToolCalls: []schema.ToolCallRequest{{ID: "c1", Name: "get_recent_emails", Arguments: map[string]any{}}},
	})
	if wire["content"] != nil {
		t.Errorf("tool-call-only assistant turn must have nil content, got %v", wire["content"])
	}
	if _, ok := wire["tool_calls"]; !ok {
		t.Error("expected tool_calls in wire map")
	}
}
