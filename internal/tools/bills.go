package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jarvis-assistant/jarvis/internal/connectors"
	"github.com/jarvis-assistant/jarvis/internal/schema"
)

// BillsAPI is the narrow bills contract the tool consumes.
// *connectors.BillsClient satisfies it; tests substitute a stub.
type BillsAPI interface {
	DueSoon(ctx context.Context, userID string, days int) ([]connectors.Bill, error)
}

// GetBillsDueSoonTool lists the caller's unpaid bills with upcoming due dates.
// The bills row filter uses the injected identity, never an LLM argument.
type GetBillsDueSoonTool struct {
	bills BillsAPI
}

// NewGetBillsDueSoonTool creates a GetBillsDueSoonTool.
func NewGetBillsDueSoonTool(bills BillsAPI) *GetBillsDueSoonTool {
	return &GetBillsDueSoonTool{bills: bills}
}

func (t *GetBillsDueSoonTool) Name() string { return string(ToolGetBillsDueSoon) }
func (t *GetBillsDueSoonTool) Description() string {
	return "Get the user's unpaid bills due within the next days. Use for questions about bills, payments, or subscriptions."
}

func (t *GetBillsDueSoonTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"days": {
				"type": "integer",
				"description": "Due-date horizon in days (1-60)",
				"minimum": 1,
				"maximum": 60
			}
		}
	}`)
}

func (t *GetBillsDueSoonTool) Execute(ctx context.Context, args map[string]any, id schema.Identity) (string, error) {
	days, err := intArg(args, "days", 7)
	if err != nil {
		return "", err
	}
	days = clampInt(days, 1, 60)

	bills, err := t.bills.DueSoon(ctx, id.UserID, days)
	if err != nil {
		return "", err
	}

	if len(bills) == 0 {
		return fmt.Sprintf("No bills due in the next %d days.", days), nil
	}

	var sb strings.Builder
	var total float64
	fmt.Fprintf(&sb, "Bills due in the next %d days:\n", days)
	for _, b := range bills {
		fmt.Fprintf(&sb, "- %s: $%.2f due %s\n", b.Name, b.Amount, b.DueDate)
		total += b.Amount
	}
	fmt.Fprintf(&sb, "Total: $%.2f\n", total)
	return sb.String(), nil
}
