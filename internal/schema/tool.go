// Package schema contains the core contracts shared across jarvis packages.
// Concrete implementations live in their respective packages; this package is
// the single canonical source of truth for every shared type and interface.
package schema

import (
	"context"
	"encoding/json"
)

// Tool is the interface every LLM-callable tool must satisfy.
//
// Execute receives the LLM-provided arguments plus the server-side caller
// identity. Implementations must never trust identity fields found inside
// args; the injected Identity is authoritative.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema (as raw JSON bytes) for this tool's parameters.
	Parameters() json.RawMessage
	Execute(ctx context.Context, args map[string]any, id Identity) (string, error)
}

// ToolList is a named set of tools exposed to the LLM.
type ToolList struct {
	tools map[string]Tool
}

// NewToolList builds a ToolList from a slice of tools.
func NewToolList(tools []Tool) ToolList {
	list := ToolList{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		list.tools[t.Name()] = t
	}
	return list
}

// Get returns the tool with the given name, or nil.
func (l *ToolList) Get(name string) Tool { return l.tools[name] }

// Names returns the tool names in no particular order.
func (l *ToolList) Names() []string {
	out := make([]string, 0, len(l.tools))
	for name := range l.tools {
		out = append(out, name)
	}
	return out
}

// Definitions returns all tool definitions in OpenAI function-calling format.
func (l *ToolList) Definitions() []map[string]any {
	list := make([]map[string]any, 0, len(l.tools))

	for _, t := range l.tools {
		var params any
		if err := json.Unmarshal(t.Parameters(), &params); err != nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		list = append(list, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  params,
			},
		})
	}

	return list
}
