package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jarvis-assistant/jarvis/internal/schema"
)

// GetDailyBriefingTool composes today's calendar, recent unread email, and
// bills due this week into one briefing. A failed section degrades to a note
// rather than failing the whole briefing, so a briefing is always produced.
//
// Briefings are cached per user for a short window; the serve command prewarms
// the cache on a schedule so the first morning request answers fast.
type GetDailyBriefingTool struct {
	calendar CalendarAPI
	email    EmailAPI
	bills    BillsAPI

	cacheTTL time.Duration
	mu       sync.Mutex
	cache    map[string]briefingEntry
}

type briefingEntry struct {
	text    string
	expires time.Time
}

// NewGetDailyBriefingTool creates a GetDailyBriefingTool. cacheTTL zero
// defaults to 10 minutes.
func NewGetDailyBriefingTool(calendar CalendarAPI, email EmailAPI, bills BillsAPI, cacheTTL time.Duration) *GetDailyBriefingTool {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &GetDailyBriefingTool{
		calendar: calendar,
		email:    email,
		bills:    bills,
		cacheTTL: cacheTTL,
		cache:    make(map[string]briefingEntry),
	}
}

func (t *GetDailyBriefingTool) Name() string { return string(ToolGetDailyBriefing) }
func (t *GetDailyBriefingTool) Description() string {
	return "Compose the user's daily briefing: today's calendar, unread email, and bills due this week."
}

func (t *GetDailyBriefingTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {}
	}`)
}

func (t *GetDailyBriefingTool) Execute(ctx context.Context, args map[string]any, id schema.Identity) (string, error) {
	t.mu.Lock()
	if entry, ok := t.cache[id.UserID]; ok && time.Now().Before(entry.expires) {
		t.mu.Unlock()
		return entry.text, nil
	}
	t.mu.Unlock()

	text := t.compose(ctx, id)

	t.mu.Lock()
	t.cache[id.UserID] = briefingEntry{text: text, expires: time.Now().Add(t.cacheTTL)}
	t.mu.Unlock()

	return text, nil
}

// Prewarm computes and caches the briefing for id ahead of demand.
func (t *GetDailyBriefingTool) Prewarm(ctx context.Context, id schema.Identity) {
	text := t.compose(ctx, id)
	t.mu.Lock()
	t.cache[id.UserID] = briefingEntry{text: text, expires: time.Now().Add(t.cacheTTL)}
	t.mu.Unlock()
}

func (t *GetDailyBriefingTool) compose(ctx context.Context, id schema.Identity) string {
	var sb strings.Builder
	now := time.Now()
	fmt.Fprintf(&sb, "Daily briefing for %s:\n\n", now.Format("Monday, January 2"))

	sb.WriteString("Calendar:\n")
	events, err := t.calendar.ListEvents(ctx, now, now.AddDate(0, 0, 1), 10)
	switch {
	case err != nil:
		sb.WriteString(sectionNote("calendar", err))
	case len(events) == 0:
		sb.WriteString("- Nothing scheduled today.\n")
	default:
		for _, ev := range events {
			fmt.Fprintf(&sb, "- %s: %s\n", ev.Start, ev.Summary)
		}
	}

	sb.WriteString("\nEmail:\n")
	messages, err := t.email.RecentMessages(ctx, 5, true)
	switch {
	case err != nil:
		sb.WriteString(sectionNote("email", err))
	case len(messages) == 0:
		sb.WriteString("- No unread email.\n")
	default:
		for _, m := range messages {
			fmt.Fprintf(&sb, "- %s: %s\n", m.From, m.Subject)
		}
	}

	sb.WriteString("\nBills:\n")
	bills, err := t.bills.DueSoon(ctx, id.UserID, 7)
	switch {
	case err != nil:
		sb.WriteString(sectionNote("bills", err))
	case len(bills) == 0:
		sb.WriteString("- No bills due this week.\n")
	default:
		for _, b := range bills {
			fmt.Fprintf(&sb, "- %s: $%.2f due %s\n", b.Name, b.Amount, b.DueDate)
		}
	}

	return sb.String()
}

// sectionNote renders a degraded section. Auth failures get the actionable
// "not connected" phrasing; anything else stays generic.
func sectionNote(section string, err error) string {
	var authErr *schema.AuthenticationError
	if errors.As(err, &authErr) {
		return fmt.Sprintf("- %s is not connected.\n", section)
	}
	return fmt.Sprintf("- %s is unavailable right now.\n", section)
}
