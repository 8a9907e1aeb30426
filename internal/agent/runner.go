package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jarvis-assistant/jarvis/internal/observability"
	"github.com/jarvis-assistant/jarvis/internal/schema"
	"github.com/jarvis-assistant/jarvis/internal/shared/textutils"
	"github.com/jarvis-assistant/jarvis/internal/tools"
)

// Settings bounds one run of the loop.
type Settings struct {
	Model       string
	MaxTokens   int
	Temperature float64
	MaxIter     int
	ToolTimeout time.Duration
}

// Runner executes the LLM ↔ tool iteration loop.
type Runner struct {
	provider schema.LLMProvider
	registry *tools.Registry
	persona  Persona
	settings Settings
}

// NewRunner creates a Runner. MaxIter zero falls back to 3, ToolTimeout zero
// to 10 seconds.
func NewRunner(provider schema.LLMProvider, registry *tools.Registry, persona Persona, settings Settings) *Runner {
	if settings.MaxIter <= 0 {
		settings.MaxIter = 3
	}
	if settings.ToolTimeout <= 0 {
		settings.ToolTimeout = 10 * time.Second
	}
	return &Runner{provider: provider, registry: registry, persona: persona, settings: settings}
}

// RunResult is the loop's raw product before the orchestrator folds it into
// an Outcome. NewTurns carries every turn the loop added after the input
// conversation, in order, for the caller to persist.
type RunResult struct {
	Text        string
	Success     bool
	ToolCalls   []schema.ToolCallRequest
	ToolResults []schema.ToolInvocationResult
	Model       string
	Usage       map[string]int
	NewTurns    []schema.Turn
}

// Run drives the request/tool-call/tool-result/re-prompt cycle until a final
// answer is produced or the iteration bound is hit. It never returns an
// error: every failure mode folds into a user-safe RunResult.
func (r *Runner) Run(ctx context.Context, conversation schema.Conversation, id schema.Identity, auth schema.AuthStatus) RunResult {
	res := RunResult{Success: true, Usage: map[string]int{}}
	toolList := r.registry.All()
	opts := schema.NewChatOptions(r.settings.Model, r.settings.MaxTokens, r.settings.Temperature)

	for i := 0; i < r.settings.MaxIter; i++ {
		resp, err := r.chat(ctx, conversation, toolList.Definitions(), opts)
		if err != nil {
			slog.Error("LLM error", "err", err, "iteration", i)
			res.Success = false
			res.Text = r.persona.Apology()
			return res
		}
		r.accumulate(&res, resp)

		if !resp.HasToolCalls() {
			// Terminal response.
			text := textutils.StripThink(resp.Text())
			res.Text = textutils.StringOrDefault(text, r.persona.Apology())
			r.appendAssistant(&res, &conversation, text, nil)
			return res
		}

		calls := r.normalizeCalls(resp.ToolCalls)
		res.ToolCalls = append(res.ToolCalls, calls...)
		r.appendAssistant(&res, &conversation, textutils.StripThink(resp.Text()), calls)

		// When every requested tool sits behind a disconnected provider
		// there is nothing useful to feed back; answer directly.
		if disconnected := gatedDomains(calls, auth); len(disconnected) == len(calls) && len(disconnected) > 0 {
			results := r.disconnectedResults(calls)
			r.appendResults(&res, &conversation, results)
			res.Text = r.persona.Disconnected(uniqueDomains(calls))
			r.appendAssistant(&res, &conversation, res.Text, nil)
			return res
		}

		results := r.executeCalls(ctx, calls, id, auth)
		r.appendResults(&res, &conversation, results)
	}

	// Iteration bound hit: ask for a plain answer from the tool results
	// gathered so far, with tools withheld so the loop cannot ping-pong.
	resp, err := r.chat(ctx, conversation, nil, opts)
	if err != nil || resp.Text() == "" {
		slog.Warn("max tool iterations reached without final answer", "max", r.settings.MaxIter)
		res.Text = r.persona.Apology()
		res.Success = false
		return res
	}
	r.accumulate(&res, resp)
	res.Text = textutils.StripThink(resp.Text())
	r.appendAssistant(&res, &conversation, res.Text, nil)
	return res
}

// chat wraps the provider call with latency and token accounting.
func (r *Runner) chat(ctx context.Context, conversation schema.Conversation, toolDefs []map[string]any, opts schema.ChatOptions) (schema.LLMResponse, error) {
	start := time.Now()
	resp, err := r.provider.Chat(ctx, conversation, toolDefs, opts)
	observability.RecordLLMCall(err == nil, time.Since(start), resp.Usage["total_tokens"])
	return resp, err
}

// executeCalls runs one iteration's tool calls concurrently, each under its
// own timeout, and returns exactly one result per call in request order.
func (r *Runner) executeCalls(ctx context.Context, calls []schema.ToolCallRequest, id schema.Identity, auth schema.AuthStatus) []schema.ToolInvocationResult {
	results := make([]schema.ToolInvocationResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			results[i] = r.executeOne(ctx, call, id, auth)
			observability.RecordToolInvocation(call.Name, results[i].Success, time.Since(start))
		}()
	}
	wg.Wait()

	return results
}

// executeOne resolves, gates, and runs a single tool call. Every failure
// path returns a failed result; nothing escapes as an error or panic.
func (r *Runner) executeOne(ctx context.Context, call schema.ToolCallRequest, id schema.Identity, auth schema.AuthStatus) (result schema.ToolInvocationResult) {
	result = schema.ToolInvocationResult{CallID: call.ID, ToolName: call.Name}
	defer func() {
		if p := recover(); p != nil {
			slog.Error("tool panic", "tool", call.Name, "panic", p)
			result.Success = false
			result.Data = ""
			result.ErrorMessage = "the tool failed unexpectedly"
		}
	}()

	if domain := tools.DomainOf(call.Name); domain != "" && !providerConnected(auth, domain) {
		result.ErrorMessage = "the user's " + domain + " is not connected; ask them to connect it"
		return result
	}

	tool, err := r.registry.Resolve(call.Name)
	if err != nil {
		slog.Warn("unknown tool requested", "tool", call.Name)
		result.ErrorMessage = "no such tool"
		return result
	}

	argsJSON, _ := json.Marshal(call.Arguments)
	slog.Info("Tool call", "name", call.Name, "args", textutils.Truncate(string(argsJSON), 200))

	toolCtx, cancel := context.WithTimeout(ctx, r.settings.ToolTimeout)
	defer cancel()

	out, err := tool.Execute(toolCtx, call.Arguments, id)
	if err != nil {
		result.ErrorMessage = userSafeToolError(call.Name, err)
		slog.Warn("tool failed", "tool", call.Name, "err", err)
		return result
	}

	result.Success = true
	result.Data = out
	return result
}

// userSafeToolError maps a tool failure onto text safe to show the LLM and
// the caller. Validation messages are precise; everything else stays generic.
func userSafeToolError(toolName string, err error) string {
	var vErr *schema.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Msg
	}
	var aErr *schema.AuthenticationError
	if errors.As(err, &aErr) {
		return "the user's " + aErr.Provider + " is not connected; ask them to connect it"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return toolName + " timed out"
	}
	return toolName + " failed"
}

// normalizeCalls guarantees every call has a non-empty ID so the 1:1
// request/result mapping survives backends that omit IDs.
func (r *Runner) normalizeCalls(calls []schema.ToolCallRequest) []schema.ToolCallRequest {
	out := make([]schema.ToolCallRequest, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = "call_" + uuid.NewString()
		}
		if c.Arguments == nil {
			c.Arguments = map[string]any{}
		}
		out[i] = c
	}
	return out
}

func (r *Runner) disconnectedResults(calls []schema.ToolCallRequest) []schema.ToolInvocationResult {
	results := make([]schema.ToolInvocationResult, len(calls))
	for i, call := range calls {
		results[i] = schema.ToolInvocationResult{
			CallID:       call.ID,
			ToolName:     call.Name,
			ErrorMessage: "the user's " + tools.DomainOf(call.Name) + " is not connected; ask them to connect it",
		}
	}
	return results
}

func (r *Runner) appendAssistant(res *RunResult, conversation *schema.Conversation, text string, calls []schema.ToolCallRequest) {
	turn := schema.Turn{Role: schema.RoleAssistant, Content: text, ToolCalls: calls}
	conversation.Add(turn)
	res.NewTurns = append(res.NewTurns, turn)
}

func (r *Runner) appendResults(res *RunResult, conversation *schema.Conversation, results []schema.ToolInvocationResult) {
	for _, result := range results {
		res.ToolResults = append(res.ToolResults, result)
		content := result.Data
		if !result.Success {
			content = "Error: " + result.ErrorMessage
		}
		turn := schema.Turn{
			Role:       schema.RoleTool,
			Content:    content,
			ToolCallID: result.CallID,
			ToolName:   result.ToolName,
		}
		conversation.Add(turn)
		res.NewTurns = append(res.NewTurns, turn)
	}
}

func (r *Runner) accumulate(res *RunResult, resp schema.LLMResponse) {
	if resp.Model != "" {
		res.Model = resp.Model
	} else if res.Model == "" {
		res.Model = r.settings.Model
	}
	for k, v := range resp.Usage {
		res.Usage[k] += v
	}
}

// gatedDomains returns the calls whose provider is disconnected.
func gatedDomains(calls []schema.ToolCallRequest, auth schema.AuthStatus) []schema.ToolCallRequest {
	var gated []schema.ToolCallRequest
	for _, call := range calls {
		if domain := tools.DomainOf(call.Name); domain != "" && !providerConnected(auth, domain) {
			gated = append(gated, call)
		}
	}
	return gated
}

// uniqueDomains lists the distinct disconnected domains behind calls, for the
// "please connect X" phrasing.
func uniqueDomains(calls []schema.ToolCallRequest) []string {
	seen := map[string]bool{}
	var out []string
	for _, call := range calls {
		d := tools.DomainOf(call.Name)
		if d != "" && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

func providerConnected(auth schema.AuthStatus, domain string) bool {
	switch domain {
	case "calendar":
		return auth.Calendar
	case "gmail":
		return auth.Gmail
	case "bills":
		return auth.Bills
	default:
		return true
	}
}
