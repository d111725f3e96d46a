//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"masraf/internal/core"
)

// Integration tests require a real spreadsheet shared with the service account.
// Run with: go test -tags=integration ./internal/ledger/google

func TestIntegration_AppendAndRead(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	id := os.Getenv("GOOGLE_SHEET_ID")
	if id == "" {
		t.Skip("GOOGLE_SHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	c, err := New(ctx, Options{
		SpreadsheetID:      id,
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := c.OpenOrCreate(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}

	now := time.Now()
	rec := core.ExpenseRecord{
		Category:    core.CategoryOther,
		Description: "integration test row",
		Amount:      core.ParseAmount("12.34"),
		Source:      "integration",
	}.WithDefaults(now)
	row, err := c.Append(ctx, rec)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if row < 2 {
		t.Fatalf("row=%d", row)
	}

	rows, err := c.Rows(ctx)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	found := false
	for _, r := range rows {
		if r.Index == row && r.Record.Description == rec.Description {
			found = true
		}
	}
	if !found {
		t.Fatalf("appended row %d not read back", row)
	}
}
