package connectors

import (
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

// EmailSummary is one message as consumed by the email tool: headers and
// snippet only, never the full body.
type EmailSummary struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
	Unread  bool   `json:"unread"`
}

// GmailClient talks to the Gmail REST API.
type GmailClient struct {
	apiBase     string
	accessToken string
	httpClient  *http.Client
}

// NewGmailClient creates a GmailClient. apiBase defaults to the public
// Google API host.
func NewGmailClient(apiBase, accessToken string) *GmailClient {
	if apiBase == "" {
		apiBase = "https://www.googleapis.com"
	}
	return &GmailClient{
		apiBase:     strings.TrimRight(apiBase, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Connected reports whether credentials are configured at all.
func (c *GmailClient) Connected() bool { return c.accessToken != "" }

// RecentMessages lists the newest inbox messages and resolves each to an
// EmailSummary. count is capped at 20 to bound the fan-out.
func (c *GmailClient) RecentMessages(ctx context.Context, count int, unreadOnly bool) ([]EmailSummary, error) {
	if !c.Connected() {
		return nil, &schema.AuthenticationError{Provider: "gmail"}
	}
	if count <= 0 {
		count = 5
	}
	if count > 20 {
		count = 20
	}

	q := url.Values{}
	q.Set("maxResults", fmt.Sprintf("%d", count))
	q.Set("labelIds", "INBOX")
	if unreadOnly {
		q.Set("q", "is:unread")
	}

	raw, err := c.get(ctx, c.apiBase+"/gmail/v1/users/me/messages?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var listing struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("parse gmail listing: %w", err)
	}

	out := make([]EmailSummary, 0, len(listing.Messages))
	for _, m := range listing.Messages {
		summary, err := c.message(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

// message fetches one message in metadata format.
func (c *GmailClient) message(ctx context.Context, id string) (EmailSummary, error) {
	endpoint := fmt.Sprintf(
		"%s/gmail/v1/users/me/messages/%s?format=metadata&metadataHeaders=From&metadataHeaders=Subject&metadataHeaders=Date",
		c.apiBase, url.PathEscape(id),
	)
	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return EmailSummary{}, err
	}

	var body struct {
		ID       string   `json:"id"`
		Snippet  string   `json:"snippet"`
		LabelIDs []string `json:"labelIds"`
		Payload  struct {
			Headers []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"headers"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return EmailSummary{}, fmt.Errorf("parse gmail message: %w", err)
	}

	out := EmailSummary{ID: body.ID, Snippet: body.Snippet}
	for _, h := range body.Payload.Headers {
		switch h.Name {
		case "From":
			out.From = h.Value
		case "Subject":
			out.Subject = h.Value
		case "Date":
			out.Date = h.Value
		}
	}
	for _, l := range body.LabelIDs {
		if l == "UNREAD" {
			out.Unread = true
		}
	}
	return out, nil
}

// Ping probes the Gmail profile endpoint with a short deadline.
func (c *GmailClient) Ping(ctx context.Context) error {
	if !c.Connected() {
		return &schema.AuthenticationError{Provider: "gmail"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := c.get(ctx, c.apiBase+"/gmail/v1/users/me/profile")
	return err
}

func (c *GmailClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gmail request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gmail response: %w", err)
	}
	if err := statusError("gmail", resp.StatusCode, raw); err != nil {
		return nil, err
	}
	return raw, nil
}
