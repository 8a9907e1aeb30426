package schema

// Conversation is the ordered list of turns exchanged with the LLM.
// It owns typed append methods so callers never construct raw maps.
type Conversation struct {
	Turns []Turn
}

// NewConversation returns a Conversation initialised with the given turns.
// Called with no arguments it returns an empty Conversation ready for use.
func NewConversation(turns ...Turn) Conversation {
	if len(turns) == 0 {
		return Conversation{Turns: make([]Turn, 0)}
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return Conversation{Turns: out}
}

// AddSystem appends a system turn.
func (c *Conversation) AddSystem(content string) {
	c.Turns = append(c.Turns, Turn{Role: RoleSystem, Content: content})
}

// AddUser appends a user turn.
func (c *Conversation) AddUser(content string) {
	c.Turns = append(c.Turns, Turn{Role: RoleUser, Content: content})
}

// AddAssistant appends an assistant turn with optional tool calls.
func (c *Conversation) AddAssistant(content string, toolCalls []ToolCallRequest) {
	c.Turns = append(c.Turns, Turn{
		Role:      RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	})
}

// AddToolResult appends a tool-result turn.
func (c *Conversation) AddToolResult(callID, toolName, result string) {
	c.Turns = append(c.Turns, Turn{
		Role:       RoleTool,
		Content:    result,
		ToolCallID: callID,
		ToolName:   toolName,
	})
}

// Add appends a pre-built turn.
func (c *Conversation) Add(t Turn) {
	c.Turns = append(c.Turns, t)
}

// Append copies all turns from other into c.
func (c *Conversation) Append(other Conversation) {
	c.Turns = append(c.Turns, other.Turns...)
}

// Clone returns a deep-enough copy: the slice is copied, turns are values.
func (c Conversation) Clone() Conversation {
	out := make([]Turn, len(c.Turns))
	copy(out, c.Turns)
	return Conversation{Turns: out}
}

// Len returns the number of turns.
func (c Conversation) Len() int { return len(c.Turns) }
