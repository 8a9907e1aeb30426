package schema

// Turn roles. These are the literal role strings sent to the LLM.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Turn is one entry in a conversation.
//
// Content holds the message text. Assistant turns that only request tools may
// have empty Content and a populated ToolCalls slice. ToolCallID and ToolName
// are set on tool-result turns so the LLM can match results to requests.
type Turn struct {
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	ToolCalls  []ToolCallRequest `json:"toolCalls,omitempty"`
	ToolCallID string            `json:"toolCallId,omitempty"`
	ToolName   string            `json:"toolName,omitempty"`
}
