// Package tools implements the fixed set of LLM-callable tools and the
// registry that resolves them by name.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/jarvis-assistant/jarvis/internal/schema"
)

// ToolName is the canonical name of a built-in tool.
type ToolName string

const (
	ToolGetCalendarEvents   ToolName = "get_calendar_events"
	ToolCreateCalendarEvent ToolName = "create_calendar_event"
	ToolGetRecentEmails     ToolName = "get_recent_emails"
	ToolGetBillsDueSoon     ToolName = "get_bills_due_soon"
	ToolGetDailyBriefing    ToolName = "get_daily_briefing"
)

// requiredTools is the complete tool surface. The registry refuses to build
// unless every one of these resolves to an executable tool, so an LLM can
// never request a declared-but-unimplemented tool mid-conversation.
var requiredTools = []ToolName{
	ToolGetCalendarEvents,
	ToolCreateCalendarEvent,
	ToolGetRecentEmails,
	ToolGetBillsDueSoon,
	ToolGetDailyBriefing,
}

// toolDomains maps each tool to the provider it depends on. Tools with no
// entry work regardless of provider connection state.
var toolDomains = map[ToolName]string{
	ToolGetCalendarEvents:   "calendar",
	ToolCreateCalendarEvent: "calendar",
	ToolGetRecentEmails:     "gmail",
	ToolGetBillsDueSoon:     "bills",
}

// DomainOf returns the provider a tool depends on, or "" when the tool runs
// regardless of provider connection state.
func DomainOf(name string) string {
	return toolDomains[ToolName(name)]
}

// Registry holds the immutable set of named tools.
type Registry struct {
	tools map[string]schema.Tool
}

// Resolve returns the tool with the given name or an error naming it.
func (r *Registry) Resolve(name string) (schema.Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return t, nil
}

// All returns the registry contents as a schema.ToolList for the LLM.
func (r *Registry) All() schema.ToolList {
	out := make([]schema.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return schema.NewToolList(out)
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	return out
}

// validate checks the registry invariants: the required tool set is fully
// covered and every parameter schema parses as a JSON object schema.
func (r *Registry) validate() error {
	for _, name := range requiredTools {
		t, ok := r.tools[string(name)]
		if !ok {
			return fmt.Errorf("tool registry: required tool %q has no implementation", name)
		}
		var params map[string]any
		if err := json.Unmarshal(t.Parameters(), &params); err != nil {
			return fmt.Errorf("tool registry: %q has malformed parameter schema: %w", name, err)
		}
		if params["type"] != "object" {
			return fmt.Errorf("tool registry: %q parameter schema must be an object schema", name)
		}
	}
	return nil
}
