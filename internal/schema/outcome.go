package schema

// Channel names for the transports that reach the orchestrator.
const (
	ChannelWeb   = "web"
	ChannelPhone = "phone"
	ChannelCLI   = "cli"
)

// Identity carries the caller's server-side identity. It is injected by the
// channel adapter, never derived from LLM output.
type Identity struct {
	UserID  string `json:"userId,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// Request is one user utterance entering the orchestrator.
// ConversationKey partitions conversation memory: the call SID on the phone
// channel, the user/session id on the web channel.
type Request struct {
	Message         string
	ConversationKey string
	Identity        Identity
}

// ToolInvocationResult records the outcome of one tool execution. Exactly one
// result is produced for every ToolCallRequest in a turn, success or not.
type ToolInvocationResult struct {
	CallID       string `json:"callId"`
	ToolName     string `json:"toolName"`
	Success      bool   `json:"success"`
	Data         string `json:"data,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Outcome is the single return value of the orchestrator. Every channel
// adapter derives its transport-specific response from this structure and
// only this structure.
type Outcome struct {
	Success     bool                   `json:"success"`
	Text        string                 `json:"text"`
	ToolCalls   []ToolCallRequest      `json:"toolCalls"`
	ToolResults []ToolInvocationResult `json:"toolResults"`
	Model       string                 `json:"model,omitempty"`
	Usage       map[string]int         `json:"usage,omitempty"`
}

// AuthStatus reports which backing providers are currently usable.
// Recomputed on demand by probing each provider; never persisted.
type AuthStatus struct {
	Calendar   bool `json:"calendar"`
	Gmail      bool `json:"gmail"`
	Bills      bool `json:"bills"`
	OpenRouter bool `json:"openrouter"`
}
