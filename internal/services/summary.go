package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"masraf/internal/core"
	"masraf/internal/ledger"
)

// SummaryRows is how many of the latest rows a summary shows.
const SummaryRows = 10

// Reply texts of the summary.
const (
	MsgNoRecords          = "Henüz kayıtlı masraf yok."
	MsgSummaryHeader      = "Son 10 Masraf:"
	MsgSummaryUnavailable = "Özet alınamadı: %v"
)

// SummaryReporter renders the latest ledger rows with their total.
type SummaryReporter struct {
	ledger ledger.Reader
}

func NewSummaryReporter(r ledger.Reader) *SummaryReporter {
	return &SummaryReporter{ledger: r}
}

// Summarize never fails: read errors become a "summary unavailable" line.
// Rows are listed newest first; the total covers exactly the listed rows
// and counts unreadable amounts as zero.
func (s *SummaryReporter) Summarize(ctx context.Context) string {
	rows, err := s.ledger.Rows(ctx)
	if err != nil {
		return fmt.Sprintf(MsgSummaryUnavailable, err)
	}
	if len(rows) == 0 {
		return MsgNoRecords
	}
	if len(rows) > SummaryRows {
		rows = rows[len(rows)-SummaryRows:]
	}

	var b strings.Builder
	b.WriteString(MsgSummaryHeader)
	b.WriteString("\n")
	total := decimal.Zero
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if row.Record.Amount.Valid {
			total = total.Add(row.Record.Amount.Decimal)
		}
		fmt.Fprintf(&b, "\n- %s | %s | %s %s",
			cell(row, core.ColDate), cell(row, core.ColCategory),
			amountCell(row), currency(row))
	}
	fmt.Fprintf(&b, "\n\nToplam: %s %s", FormatTotal(total), core.DefaultCurrency)
	return b.String()
}

// FormatTotal groups thousands with commas and keeps two decimals.
func FormatTotal(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

func cell(row core.LedgerRow, col int) string {
	if col < len(row.Raw) {
		if v := strings.TrimSpace(row.Raw[col]); v != "" {
			return v
		}
	}
	return "?"
}

func amountCell(row core.LedgerRow) string {
	if row.Record.Amount.Valid {
		return core.FormatAmount(row.Record.Amount)
	}
	return cell(row, core.ColAmount)
}

func currency(row core.LedgerRow) string {
	if col := core.ColCurrency; col < len(row.Raw) && strings.TrimSpace(row.Raw[col]) != "" {
		return strings.TrimSpace(row.Raw[col])
	}
	return core.DefaultCurrency
}
