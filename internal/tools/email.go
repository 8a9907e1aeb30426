package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jarvis-assistant/jarvis/internal/connectors"
	"github.com/jarvis-assistant/jarvis/internal/schema"
)

// EmailAPI is the narrow email contract the tool consumes.
// *connectors.GmailClient satisfies it; tests substitute a stub.
type EmailAPI interface {
	RecentMessages(ctx context.Context, count int, unreadOnly bool) ([]connectors.EmailSummary, error)
}

// GetRecentEmailsTool summarises the newest inbox messages.
type GetRecentEmailsTool struct {
	email EmailAPI
}

// NewGetRecentEmailsTool creates a GetRecentEmailsTool.
func NewGetRecentEmailsTool(email EmailAPI) *GetRecentEmailsTool {
	return &GetRecentEmailsTool{email: email}
}

func (t *GetRecentEmailsTool) Name() string { return string(ToolGetRecentEmails) }
func (t *GetRecentEmailsTool) Description() string {
	return "Get recent emails from the user's inbox: sender, subject, and a short snippet. Never reads full message bodies."
}

func (t *GetRecentEmailsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"count": {
				"type": "integer",
				"description": "How many messages to return (1-20)",
				"minimum": 1,
				"maximum": 20
			},
			"unread_only": {
				"type": "boolean",
				"description": "Only return unread messages"
			}
		}
	}`)
}

func (t *GetRecentEmailsTool) Execute(ctx context.Context, args map[string]any, id schema.Identity) (string, error) {
	count, err := intArg(args, "count", 5)
	if err != nil {
		return "", err
	}
	unreadOnly, err := boolArg(args, "unread_only", false)
	if err != nil {
		return "", err
	}
	count = clampInt(count, 1, 20)

	messages, err := t.email.RecentMessages(ctx, count, unreadOnly)
	if err != nil {
		return "", err
	}

	if len(messages) == 0 {
		if unreadOnly {
			return "No unread emails.", nil
		}
		return "The inbox is empty.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent emails (%d):\n", len(messages))
	for _, m := range messages {
		marker := ""
		if m.Unread {
			marker = " [unread]"
		}
		fmt.Fprintf(&sb, "- From %s: %s%s\n", m.From, m.Subject, marker)
		if m.Snippet != "" {
			fmt.Fprintf(&sb, "  %s\n", m.Snippet)
		}
	}
	return sb.String(), nil
}
