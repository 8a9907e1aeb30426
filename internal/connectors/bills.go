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

// Bill is one row from the bills table.
type Bill struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	DueDate string  `json:"due_date"`
	Paid    bool    `json:"paid"`
}

// BillsClient talks to the Supabase PostgREST endpoint backing the bills table.
type BillsClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewBillsClient creates a BillsClient for the given Supabase project URL.
func NewBillsClient(baseURL, apiKey string) *BillsClient {
	return &BillsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Connected reports whether credentials are configured at all.
func (c *BillsClient) Connected() bool { return c.baseURL != "" && c.apiKey != "" }

// DueSoon returns unpaid bills for userID due within the next days days,
// ordered by due date.
func (c *BillsClient) DueSoon(ctx context.Context, userID string, days int) ([]Bill, error) {
	if !c.Connected() {
		return nil, &schema.AuthenticationError{Provider: "bills"}
	}
	if days <= 0 {
		days = 7
	}

	horizon := time.Now().AddDate(0, 0, days).Format("2006-01-02")
	q := url.Values{}
	q.Set("select", "id,name,amount,due_date,paid")
	q.Set("paid", "eq.false")
	q.Set("due_date", "lte."+horizon)
	q.Set("order", "due_date.asc")
	if userID != "" {
		q.Set("user_id", "eq."+userID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/rest/v1/bills?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bills request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read bills response: %w", err)
	}
	if err := statusError("bills", resp.StatusCode, raw); err != nil {
		return nil, err
	}

	var bills []Bill
	if err := json.Unmarshal(raw, &bills); err != nil {
		return nil, fmt.Errorf("parse bills response: %w", err)
	}
	return bills, nil
}

// Ping probes the bills table with a zero-row query and a short deadline.
func (c *BillsClient) Ping(ctx context.Context) error {
	if !c.Connected() {
		return &schema.AuthenticationError{Provider: "bills"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/rest/v1/bills?select=id&limit=1", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bills request: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return statusError("bills", resp.StatusCode, raw)
}
