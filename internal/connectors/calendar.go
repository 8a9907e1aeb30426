// Package connectors wraps the external data providers (Google Calendar,
// Gmail, Supabase bills) behind narrow fetch/create contracts. Each client
// exposes a lightweight Ping used by the auth/health aggregator and maps
// 401/403 responses to schema.AuthenticationError so callers can tell
// "not connected" apart from "provider down".
package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jarvis-assistant/jarvis/internal/schema"
)

// CalendarEvent is one event as consumed by the calendar tools.
type CalendarEvent struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Location string `json:"location,omitempty"`
}

// CalendarClient talks to the Google Calendar REST API.
type CalendarClient struct {
	apiBase     string
	accessToken string
	httpClient  *http.Client
}

// NewCalendarClient creates a CalendarClient. apiBase defaults to the public
// Google API host.
func NewCalendarClient(apiBase, accessToken string) *CalendarClient {
	if apiBase == "" {
		apiBase = "https://www.googleapis.com"
	}
	return &CalendarClient{
		apiBase:     strings.TrimRight(apiBase, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Connected reports whether credentials are configured at all.
func (c *CalendarClient) Connected() bool { return c.accessToken != "" }

// ListEvents returns events on the primary calendar between from and to,
// capped at maxResults.
func (c *CalendarClient) ListEvents(ctx context.Context, from, to time.Time, maxResults int) ([]CalendarEvent, error) {
	if !c.Connected() {
		return nil, &schema.AuthenticationError{Provider: "calendar"}
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	q := url.Values{}
	q.Set("timeMin", from.UTC().Format(time.RFC3339))
	q.Set("timeMax", to.UTC().Format(time.RFC3339))
	q.Set("maxResults", fmt.Sprintf("%d", maxResults))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	endpoint := c.apiBase + "/calendar/v3/calendars/primary/events?" + q.Encode()
	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var body struct {
		Items []struct {
			ID       string `json:"id"`
			Summary  string `json:"summary"`
			Location string `json:"location"`
			Start    struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"end"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("parse calendar response: %w", err)
	}

	out := make([]CalendarEvent, 0, len(body.Items))
	for _, it := range body.Items {
		start := it.Start.DateTime
		if start == "" {
			start = it.Start.Date
		}
		end := it.End.DateTime
		if end == "" {
			end = it.End.Date
		}
		out = append(out, CalendarEvent{
			ID:       it.ID,
			Summary:  it.Summary,
			Start:    start,
			End:      end,
			Location: it.Location,
		})
	}
	return out, nil
}

// CreateEvent inserts an event on the primary calendar and returns it with
// the provider-assigned ID.
func (c *CalendarClient) CreateEvent(ctx context.Context, summary string, start, end time.Time, location string) (CalendarEvent, error) {
	if !c.Connected() {
		return CalendarEvent{}, &schema.AuthenticationError{Provider: "calendar"}
	}

	payload := map[string]any{
		"summary": summary,
		"start":   map[string]string{"dateTime": start.UTC().Format(time.RFC3339)},
		"end":     map[string]string{"dateTime": end.UTC().Format(time.RFC3339)},
	}
	if location != "" {
		payload["location"] = location
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("marshal event: %w", err)
	}

	endpoint := c.apiBase + "/calendar/v3/calendars/primary/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("calendar request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("read calendar response: %w", err)
	}
	if err := statusError("calendar", resp.StatusCode, raw); err != nil {
		return CalendarEvent{}, err
	}

	var created struct {
		ID      string `json:"id"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return CalendarEvent{}, fmt.Errorf("parse created event: %w", err)
	}
	return CalendarEvent{
		ID:       created.ID,
		Summary:  created.Summary,
		Start:    start.UTC().Format(time.RFC3339),
		End:      end.UTC().Format(time.RFC3339),
		Location: location,
	}, nil
}

// Ping probes the calendar list endpoint with a short deadline.
func (c *CalendarClient) Ping(ctx context.Context) error {
	if !c.Connected() {
		return &schema.AuthenticationError{Provider: "calendar"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := c.get(ctx, c.apiBase+"/calendar/v3/users/me/calendarList?maxResults=1")
	return err
}

func (c *CalendarClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read calendar response: %w", err)
	}
	if err := statusError("calendar", resp.StatusCode, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// statusError maps a non-2xx status to the error taxonomy.
func statusError(provider string, code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &schema.AuthenticationError{Provider: provider}
	default:
		s := strings.TrimSpace(string(body))
		if len(s) > 200 {
			s = s[:200]
		}
		return fmt.Errorf("%s: HTTP %d: %s", provider, code, s)
	}
}
