package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jarvis-assistant/jarvis/internal/convo"
	"github.com/jarvis-assistant/jarvis/internal/observability"
	"github.com/jarvis-assistant/jarvis/internal/schema"
	"github.com/jarvis-assistant/jarvis/internal/shared/textutils"
)

// AuthSource supplies the current provider connection state. Implemented by
// the auth aggregator; tests substitute a fixed status.
type AuthSource interface {
	Status(ctx context.Context) schema.AuthStatus
}

// Orchestrator is the unified request processor both channels delegate to.
// One Process call turns one utterance into one Outcome; the parity contract
// between the phone and web adapters holds because this is the only path.
type Orchestrator struct {
	runner          *Runner
	store           *convo.Store
	persona         Persona
	auth            AuthSource
	maxMessageChars int
}

// NewOrchestrator wires the orchestrator. maxMessageChars zero falls back
// to 2000.
func NewOrchestrator(runner *Runner, store *convo.Store, persona Persona, auth AuthSource, maxMessageChars int) *Orchestrator {
	if maxMessageChars <= 0 {
		maxMessageChars = 2000
	}
	return &Orchestrator{
		runner:          runner,
		store:           store,
		persona:         persona,
		auth:            auth,
		maxMessageChars: maxMessageChars,
	}
}

// Process runs one utterance through the loop. The only error it can return
// is *schema.ValidationError, raised before any context mutation or LLM
// call; every other failure folds into the Outcome with Success=false and a
// persona-consistent text. Callers never see a raw fault.
func (o *Orchestrator) Process(ctx context.Context, req schema.Request) (out schema.Outcome, err error) {
	if err := o.validate(req); err != nil {
		return schema.Outcome{}, err
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Error("orchestrator panic", "panic", p, "key", req.ConversationKey)
			out = o.fallbackOutcome()
			err = nil
		}
	}()

	start := time.Now()
	defer func() {
		observability.RecordRequest(req.Identity.Channel, out.Success, time.Since(start))
		observability.SetActiveConversations(o.store.ActiveConversations())
	}()

	slog.Info("Processing message",
		"channel", req.Identity.Channel,
		"key", req.ConversationKey,
		"content", textutils.Truncate(req.Message, 80),
	)

	conversation := schema.NewConversation(o.store.Get(req.ConversationKey)...)
	userTurn := schema.Turn{Role: schema.RoleUser, Content: req.Message}
	conversation.Add(userTurn)
	o.store.Append(req.ConversationKey, userTurn)

	status := o.auth.Status(ctx)
	result := o.runner.Run(ctx, conversation, req.Identity, status)

	for _, turn := range result.NewTurns {
		o.store.Append(req.ConversationKey, turn)
	}

	slog.Info("Response",
		"channel", req.Identity.Channel,
		"key", req.ConversationKey,
		"success", result.Success,
		"tools", len(result.ToolCalls),
		"length", len(result.Text),
	)

	return schema.Outcome{
		Success:     result.Success,
		Text:        result.Text,
		ToolCalls:   emptyIfNil(result.ToolCalls),
		ToolResults: emptyIfNilResults(result.ToolResults),
		Model:       result.Model,
		Usage:       result.Usage,
	}, nil
}

// Reset discards the conversation context for key.
func (o *Orchestrator) Reset(key string) {
	o.store.Reset(key)
}

// Persona exposes the persona for channel adapters (greetings, fallbacks).
func (o *Orchestrator) Persona() Persona { return o.persona }

func (o *Orchestrator) validate(req schema.Request) error {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return schema.NewValidationError("message must not be empty")
	}
	if len(req.Message) > o.maxMessageChars {
		return schema.NewValidationError("message exceeds %d characters", o.maxMessageChars)
	}
	if req.ConversationKey == "" {
		return schema.NewValidationError("conversation key must not be empty")
	}
	return nil
}

func (o *Orchestrator) fallbackOutcome() schema.Outcome {
	return schema.Outcome{
		Success:     false,
		Text:        o.persona.Apology(),
		ToolCalls:   []schema.ToolCallRequest{},
		ToolResults: []schema.ToolInvocationResult{},
	}
}

// emptyIfNil keeps the JSON contract stable: toolCalls/toolResults serialize
// as [] rather than null.
func emptyIfNil(in []schema.ToolCallRequest) []schema.ToolCallRequest {
	if in == nil {
		return []schema.ToolCallRequest{}
	}
	return in
}

func emptyIfNilResults(in []schema.ToolInvocationResult) []schema.ToolInvocationResult {
	if in == nil {
		return []schema.ToolInvocationResult{}
	}
	return in
}
