package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jarvis-assistant/jarvis/internal/connectors"
	"github.com/jarvis-assistant/jarvis/internal/convo"
	"github.com/jarvis-assistant/jarvis/internal/schema"
	"github.com/jarvis-assistant/jarvis/internal/tools"
)

// scriptedProvider replays a fixed sequence of responses and records every
// conversation it was shown.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []schema.LLMResponse
	err       error
	calls     int
	seen      []schema.Conversation
}

func (p *scriptedProvider) Chat(ctx context.Context, conversation schema.Conversation, toolDefs []map[string]any, opts schema.ChatOptions) (schema.LLMResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, conversation.Clone())
	idx := p.calls
	p.calls++
	if p.err != nil {
		return schema.LLMResponse{}, p.err
	}
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return p.responses[idx], nil
}

func (p *scriptedProvider) DefaultModel() string { return "test/model" }

func textResponse(text string) schema.LLMResponse {
	return schema.LLMResponse{Content: &text, FinishReason: "stop", Model: "test/model", Usage: map[string]int{"total_tokens": 10}}
}

func toolResponse(calls ...schema.ToolCallRequest) schema.LLMResponse {
	return schema.LLMResponse{ToolCalls: calls, FinishReason: "tool_calls", Model: "test/model", Usage: map[string]int{"total_tokens": 5}}
}

// staticAuth implements AuthSource with a fixed status.
type staticAuth struct{ status schema.AuthStatus }

func (a staticAuth) Status(ctx context.Context) schema.AuthStatus { return a.status }

func allConnected() schema.AuthStatus {
	return schema.AuthStatus{Calendar: true, Gmail: true, Bills: true, OpenRouter: true}
}

// stub backing adapters (same shape as the connector clients).

type stubCalendar struct {
	mu    sync.Mutex
	calls int
}

func (s *stubCalendar) ListEvents(ctx context.Context, from, to time.Time, maxResults int) ([]connectors.CalendarEvent, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return nil, nil
}

func (s *stubCalendar) CreateEvent(ctx context.Context, summary string, start, end time.Time, location string) (connectors.CalendarEvent, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return connectors.CalendarEvent{Summary: summary}, nil
}

type stubEmail struct{}

func (stubEmail) RecentMessages(ctx context.Context, count int, unreadOnly bool) ([]connectors.EmailSummary, error) {
	return []connectors.EmailSummary{{From: "boss@example.com", Subject: "Standup"}}, nil
}

type stubBills struct{}

func (stubBills) DueSoon(ctx context.Context, userID string, days int) ([]connectors.Bill, error) {
	return []connectors.Bill{{Name: "Netflix", Amount: 15.99, DueDate: "2025-08-15"}}, nil
}

type harness struct {
	provider *scriptedProvider
	calendar *stubCalendar
	orch     *Orchestrator
}

func newHarness(t *testing.T, provider *scriptedProvider, status schema.AuthStatus) *harness {
	t.Helper()
	cal := &stubCalendar{}
	reg, err := tools.NewRegistryBuilder().
		WithTool(tools.NewGetCalendarEventsTool(cal)).
		WithTool(tools.NewCreateCalendarEventTool(cal)).
		WithTool(tools.NewGetRecentEmailsTool(stubEmail{})).
		WithTool(tools.NewGetBillsDueSoonTool(stubBills{})).
		WithTool(tools.NewGetDailyBriefingTool(cal, stubEmail{}, stubBills{}, time.Minute)).
		Build()
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	persona := DefaultPersona()
	runner := NewRunner(provider, reg, persona, Settings{Model: "test/model", MaxIter: 3, ToolTimeout: time.Second})
	store := convo.NewStore(30*time.Minute, func(key string) schema.Turn {
		return schema.Turn{Role: schema.RoleSystem, Content: persona.SystemPrompt()}
	})
	return &harness{
		provider: provider,
		calendar: cal,
		orch:     NewOrchestrator(runner, store, persona, staticAuth{status}, 2000),
	}
}

func webRequest(msg string) schema.Request {
	return schema.Request{
		Message:         msg,
		ConversationKey: "web:alice",
		Identity:        schema.Identity{UserID: "alice", Channel: schema.ChannelWeb},
	}
}

func TestProcess_DirectAnswer(t *testing.T) {
	h := newHarness(t, &scriptedProvider{responses: []schema.LLMResponse{textResponse("Good morning.")}}, allConnected())

	out, err := h.orch.Process(context.Background(), webRequest("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Success || out.Text != "Good morning." {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if len(out.ToolCalls) != 0 || len(out.ToolResults) != 0 {
		t.Errorf("direct answer should carry no tool activity: %+v", out)
	}
}

func TestProcess_EmptyMessageRejectedBeforeLLM(t *testing.T) {
	provider := &scriptedProvider{responses: []schema.LLMResponse{textResponse("nope")}}
	h := newHarness(t, provider, allConnected())

	_, err := h.orch.Process(context.Background(), webRequest("   "))
	var vErr *schema.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if provider.calls != 0 {
		t.Errorf("LLM must never be invoked for blank input, saw %d calls", provider.calls)
	}
}

func TestProcess_OversizedMessageRejected(t *testing.T) {
	h := newHarness(t, &scriptedProvider{responses: []schema.LLMResponse{textResponse("nope")}}, allConnected())

	_, err := h.orch.Process(context.Background(), webRequest(strings.Repeat("a", 2001)))
	var vErr *schema.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestProcess_LLMFailureDegradesGracefully(t *testing.T) {
	provider := &scriptedProvider{err: &schema.LLMUnavailableError{Err: errors.New("connection refused")}}
	h := newHarness(t, provider, allConnected())

	out, err := h.orch.Process(context.Background(), webRequest("hello"))
	if err != nil {
		t.Fatalf("LLM failure must not escape as an error: %v", err)
	}
	if out.Success {
		t.Error("outcome must report failure")
	}
	if strings.TrimSpace(out.Text) == "" {
		t.Error("fallback text must be non-empty")
	}
	if strings.Contains(out.Text, "connection refused") {
		t.Error("fallback text must not leak internals")
	}
}

func TestProcess_BillsScenario(t *testing.T) {
	provider := &scriptedProvider{responses: []schema.LLMResponse{
		toolResponse(schema.ToolCallRequest{ID: "call_1", Name: "get_bills_due_soon", Arguments: map[string]any{"days": float64(7)}}),
		textResponse("You have one bill coming up: Netflix for $15.99, due August 15."),
	}}
	h := newHarness(t, provider, allConnected())

	out, err := h.orch.Process(context.Background(), webRequest("What bills are due soon?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "get_bills_due_soon" {
		t.Fatalf("expected one bills tool call, got %+v", out.ToolCalls)
	}
	if len(out.ToolResults) != 1 || !out.ToolResults[0].Success {
		t.Fatalf("expected one successful tool result, got %+v", out.ToolResults)
	}
	if !strings.Contains(out.ToolResults[0].Data, "Netflix") || !strings.Contains(out.ToolResults[0].Data, "15.99") {
		t.Errorf("tool result should carry the bill: %q", out.ToolResults[0].Data)
	}
	if !strings.Contains(out.Text, "Netflix") || !strings.Contains(out.Text, "15.99") {
		t.Errorf("text should mention the bill: %q", out.Text)
	}
}

func TestProcess_AuthGating(t *testing.T) {
	provider := &scriptedProvider{responses: []schema.LLMResponse{
		toolResponse(schema.ToolCallRequest{ID: "call_1", Name: "get_calendar_events", Arguments: map[string]any{}}),
		textResponse("should never be needed"),
	}}
	status := allConnected()
	status.Calendar = false
	h := newHarness(t, provider, status)

	out, err := h.orch.Process(context.Background(), webRequest("What's on my calendar today?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(strings.ToLower(out.Text), "connect") {
		t.Errorf("text should ask the user to connect the calendar: %q", out.Text)
	}
	if h.calendar.calls != 0 {
		t.Errorf("calendar adapter must not be invoked while disconnected, saw %d calls", h.calendar.calls)
	}
	if len(out.ToolResults) != 1 || out.ToolResults[0].Success {
		t.Errorf("gated call should surface as a failed result: %+v", out.ToolResults)
	}
}

func TestRun_BoundedTermination(t *testing.T) {
	// The model requests a tool on every single completion, including the
	// forced final one. The loop must still terminate.
	provider := &scriptedProvider{responses: []schema.LLMResponse{
		toolResponse(schema.ToolCallRequest{ID: "c", Name: "get_recent_emails", Arguments: map[string]any{}}),
	}}
	h := newHarness(t, provider, allConnected())

	out, err := h.orch.Process(context.Background(), webRequest("check my email forever"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		t.Error("a bounded run must still produce text")
	}
	// MaxIter tool iterations plus one forced no-tools completion.
	if provider.calls != 4 {
		t.Errorf("expected 4 LLM calls (3 iterations + forced final), got %d", provider.calls)
	}
	if len(out.ToolResults) != len(out.ToolCalls) {
		t.Errorf("1:1 call/result mapping violated: %d calls, %d results", len(out.ToolCalls), len(out.ToolResults))
	}
}

func TestRun_OneResultPerCall(t *testing.T) {
	provider := &scriptedProvider{responses: []schema.LLMResponse{
		toolResponse(
			schema.ToolCallRequest{ID: "c1", Name: "get_recent_emails", Arguments: map[string]any{}},
			schema.ToolCallRequest{ID: "c2", Name: "no_such_tool", Arguments: map[string]any{}},
			schema.ToolCallRequest{ID: "c3", Name: "get_bills_due_soon", Arguments: map[string]any{}},
		),
		textResponse("done"),
	}}
	h := newHarness(t, provider, allConnected())

	out, err := h.orch.Process(context.Background(), webRequest("do three things"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.ToolCalls) != 3 || len(out.ToolResults) != 3 {
		t.Fatalf("expected 3 calls and 3 results, got %d/%d", len(out.ToolCalls), len(out.ToolResults))
	}
	seen := map[string]int{}
	for _, r := range out.ToolResults {
		seen[r.CallID]++
	}
	for _, id := range []string{"c1", "c2", "c3"} {
		if seen[id] != 1 {
			t.Errorf("call %s should map to exactly one result, got %d", id, seen[id])
		}
	}
	for _, r := range out.ToolResults {
		if r.CallID == "c2" && r.Success {
			t.Error("unknown tool must yield a failed result")
		}
		if r.CallID == "c1" && !r.Success {
			t.Errorf("email tool should succeed: %+v", r)
		}
	}
}

func TestProcess_ContextCarriesAcrossTurns(t *testing.T) {
	provider := &scriptedProvider{responses: []schema.LLMResponse{textResponse("noted")}}
	h := newHarness(t, provider, allConnected())

	if _, err := h.orch.Process(context.Background(), webRequest("my dentist is Dr. Lee")); err != nil {
		t.Fatal(err)
	}
	if _, err := h.orch.Process(context.Background(), webRequest("who is my dentist?")); err != nil {
		t.Fatal(err)
	}

	if len(provider.seen) != 2 {
		t.Fatalf("expected 2 LLM calls, got %d", len(provider.seen))
	}
	second := provider.seen[1]
	var sawFirstUtterance bool
	for _, turn := range second.Turns {
		if strings.Contains(turn.Content, "Dr. Lee") {
			sawFirstUtterance = true
		}
	}
	if !sawFirstUtterance {
		t.Error("second turn should see the first utterance in its prompt history")
	}
	if second.Turns[0].Role != schema.RoleSystem {
		t.Error("persona turn must stay first in the prompt history")
	}
}

// blockedCalendar never answers; it waits out the caller's deadline.
type blockedCalendar struct{}

func (blockedCalendar) ListEvents(ctx context.Context, from, to time.Time, maxResults int) ([]connectors.CalendarEvent, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockedCalendar) CreateEvent(ctx context.Context, summary string, start, end time.Time, location string) (connectors.CalendarEvent, error) {
	<-ctx.Done()
	return connectors.CalendarEvent{}, ctx.Err()
}

func TestRun_SlowToolTimesOutAlone(t *testing.T) {
	reg, err := tools.NewRegistryBuilder().
		WithTool(tools.NewGetCalendarEventsTool(blockedCalendar{})).
		WithTool(tools.NewCreateCalendarEventTool(blockedCalendar{})).
		WithTool(tools.NewGetRecentEmailsTool(stubEmail{})).
		WithTool(tools.NewGetBillsDueSoonTool(stubBills{})).
		WithTool(tools.NewGetDailyBriefingTool(blockedCalendar{}, stubEmail{}, stubBills{}, time.Minute)).
		Build()
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	provider := &scriptedProvider{responses: []schema.LLMResponse{
		toolResponse(
			schema.ToolCallRequest{ID: "c1", Name: "get_calendar_events", Arguments: map[string]any{}},
			schema.ToolCallRequest{ID: "c2", Name: "get_recent_emails", Arguments: map[string]any{}},
		),
		textResponse("done"),
	}}
	persona := DefaultPersona()
	runner := NewRunner(provider, reg, persona, Settings{Model: "test/model", MaxIter: 3, ToolTimeout: 20 * time.Millisecond})

	conversation := schema.NewConversation(
		schema.Turn{Role: schema.RoleSystem, Content: persona.SystemPrompt()},
		schema.Turn{Role: schema.RoleUser, Content: "calendar and email please"},
	)
	res := runner.Run(context.Background(), conversation, schema.Identity{UserID: "alice"}, allConnected())

	if len(res.ToolResults) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.ToolResults))
	}
	byID := map[string]schema.ToolInvocationResult{}
	for _, r := range res.ToolResults {
		byID[r.CallID] = r
	}
	if slow := byID["c1"]; slow.Success || !strings.Contains(slow.ErrorMessage, "timed out") {
		t.Errorf("blocked tool should fail with a timeout message: %+v", slow)
	}
	if fast := byID["c2"]; !fast.Success {
		t.Errorf("sibling tool must be unaffected by the slow one: %+v", fast)
	}
	if res.Text != "done" {
		t.Errorf("loop should still reach a final answer, got %q", res.Text)
	}
}

func TestPersona_SystemPromptStable(t *testing.T) {
	p := DefaultPersona()
	if !strings.Contains(p.SystemPrompt(), "JARVIS") {
		t.Error("system prompt should name the persona")
	}
	if p.Apology() == "" || p.Greeting() == "" {
		t.Error("persona fallback strings must be non-empty")
	}
	msg := p.Disconnected([]string{"calendar"})
	if !strings.Contains(msg, "calendar") || !strings.Contains(msg, "connect") {
		t.Errorf("disconnected message should name the provider: %q", msg)
	}
}
