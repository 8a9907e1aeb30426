package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jarvis-assistant/jarvis/internal/connectors"
	"github.com/jarvis-assistant/jarvis/internal/schema"
)

// CalendarAPI is the narrow calendar contract the tools consume.
// *connectors.CalendarClient satisfies it; tests substitute a stub.
type CalendarAPI interface {
	ListEvents(ctx context.Context, from, to time.Time, maxResults int) ([]connectors.CalendarEvent, error)
	CreateEvent(ctx context.Context, summary string, start, end time.Time, location string) (connectors.CalendarEvent, error)
}

// ---------------------------------------------------------------------------
// GetCalendarEventsTool
// ---------------------------------------------------------------------------

// GetCalendarEventsTool lists upcoming events on the caller's calendar.
type GetCalendarEventsTool struct {
	calendar CalendarAPI
}

// NewGetCalendarEventsTool creates a GetCalendarEventsTool.
func NewGetCalendarEventsTool(calendar CalendarAPI) *GetCalendarEventsTool {
	return &GetCalendarEventsTool{calendar: calendar}
}

func (t *GetCalendarEventsTool) Name() string { return string(ToolGetCalendarEvents) }
func (t *GetCalendarEventsTool) Description() string {
	return "Get upcoming events from the user's calendar. Use for questions about schedule, meetings, or appointments."
}

func (t *GetCalendarEventsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"days": {
				"type": "integer",
				"description": "How many days ahead to look (1-30)",
				"minimum": 1,
				"maximum": 30
			},
			"max_results": {
				"type": "integer",
				"description": "Maximum events to return (1-25)",
				"minimum": 1,
				"maximum": 25
			}
		}
	}`)
}

func (t *GetCalendarEventsTool) Execute(ctx context.Context, args map[string]any, id schema.Identity) (string, error) {
	days, err := intArg(args, "days", 7)
	if err != nil {
		return "", err
	}
	maxResults, err := intArg(args, "max_results", 10)
	if err != nil {
		return "", err
	}
	days = clampInt(days, 1, 30)
	maxResults = clampInt(maxResults, 1, 25)

	now := time.Now()
	events, err := t.calendar.ListEvents(ctx, now, now.AddDate(0, 0, days), maxResults)
	if err != nil {
		return "", err
	}

	if len(events) == 0 {
		return fmt.Sprintf("No events on the calendar in the next %d days.", days), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Upcoming events (next %d days):\n", days)
	for _, ev := range events {
		fmt.Fprintf(&sb, "- %s: %s", ev.Start, ev.Summary)
		if ev.Location != "" {
			fmt.Fprintf(&sb, " (%s)", ev.Location)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// ---------------------------------------------------------------------------
// CreateCalendarEventTool
// ---------------------------------------------------------------------------

// CreateCalendarEventTool creates an event on the caller's calendar.
type CreateCalendarEventTool struct {
	calendar CalendarAPI
}

// NewCreateCalendarEventTool creates a CreateCalendarEventTool.
func NewCreateCalendarEventTool(calendar CalendarAPI) *CreateCalendarEventTool {
	return &CreateCalendarEventTool{calendar: calendar}
}

func (t *CreateCalendarEventTool) Name() string { return string(ToolCreateCalendarEvent) }
func (t *CreateCalendarEventTool) Description() string {
	return "Create an event on the user's calendar. start_time must be RFC 3339 (e.g. 2025-08-15T14:00:00Z)."
}

func (t *CreateCalendarEventTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"summary": {
				"type": "string",
				"description": "Event title"
			},
			"start_time": {
				"type": "string",
				"description": "Event start in RFC 3339 format"
			},
			"duration_minutes": {
				"type": "integer",
				"description": "Event length in minutes (default 60)",
				"minimum": 5,
				"maximum": 1440
			},
			"location": {
				"type": "string",
				"description": "Optional event location"
			}
		},
		"required": ["summary", "start_time"]
	}`)
}

func (t *CreateCalendarEventTool) Execute(ctx context.Context, args map[string]any, id schema.Identity) (string, error) {
	summary, err := stringArg(args, "summary", true)
	if err != nil {
		return "", err
	}
	startStr, err := stringArg(args, "start_time", true)
	if err != nil {
		return "", err
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return "", schema.NewValidationError("start_time must be RFC 3339, got %q", startStr)
	}
	duration, err := intArg(args, "duration_minutes", 60)
	if err != nil {
		return "", err
	}
	duration = clampInt(duration, 5, 1440)
	location, err := stringArg(args, "location", false)
	if err != nil {
		return "", err
	}

	created, err := t.calendar.CreateEvent(ctx, summary, start, start.Add(time.Duration(duration)*time.Minute), location)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Created event %q starting %s (%d minutes).", created.Summary, created.Start, duration), nil
}
