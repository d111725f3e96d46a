// Package google implements the remote ledger on a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"masraf/internal/core"
	"masraf/internal/ledger"
)

// Options selects the spreadsheet and the service account used to reach it.
type Options struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Client appends expense rows to the first worksheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	// Resolved lazily from the spreadsheet metadata.
	sheetTitle string
	sheetID    int64
}

var _ ledger.Ledger = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
// GOOGLE_APPLICATION_CREDENTIALS is used when neither JSON nor file is given.
func New(ctx context.Context, opts Options) (*Client, error) {
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", id)
	return NewWithService(svc, id), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID}
}

func credentials(opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.ServiceAccountJSON)
	file := strings.TrimSpace(opts.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) Info() ledger.Info {
	return ledger.Info{Backend: "sheets", Location: c.spreadsheetID}
}

// OpenOrCreate writes and formats the header row when row 1 is empty.
func (c *Client) OpenOrCreate(ctx context.Context) error {
	if err := c.resolveSheet(ctx); err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistFailure, err)
	}
	rng := c.a1("A1:M1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: read header %s: %w", core.ErrPersistFailure, rng, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := make([]any, 0, core.ColumnCount)
	for _, col := range core.Columns {
		header = append(header, col)
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: write header: %w", core.ErrPersistFailure, err)
	}
	if err := c.formatHeader(ctx); err != nil {
		slog.WarnContext(ctx, "Header formatting failed", "spreadsheet_id", c.spreadsheetID, "error", err)
	}
	slog.InfoContext(ctx, "Ledger header written", "spreadsheet_id", c.spreadsheetID, "sheet", c.sheetTitle)
	return nil
}

// Append adds the record after the last row with RAW input, so that text is
// never reinterpreted as a formula or date. Coloring the row is best-effort.
func (c *Client) Append(ctx context.Context, r core.ExpenseRecord) (int, error) {
	r = r.Normalized()
	if err := r.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrPersistFailure, err)
	}
	if err := c.resolveSheet(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrPersistFailure, err)
	}

	vr := &gsheet.ValueRange{Values: [][]any{r.Values()}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.a1("A1"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("%w: append to %s: %w", core.ErrPersistFailure, c.sheetTitle, err)
	}
	if resp.Updates == nil {
		return 0, fmt.Errorf("%w: append response without updates", core.ErrPersistFailure)
	}
	row, err := rowFromRange(resp.Updates.UpdatedRange)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrPersistFailure, err)
	}

	if err := c.colorRow(ctx, row, r.Category.Color()); err != nil {
		slog.WarnContext(ctx, "Row coloring failed", "row", row, "error", err)
	}
	slog.InfoContext(ctx, "Expense saved to spreadsheet",
		"spreadsheet_id", c.spreadsheetID,
		"row", row,
		"category", string(r.Category),
		"amount", core.FormatAmount(r.Amount))
	return row, nil
}

// Rows reads every data row with unformatted values.
func (c *Client) Rows(ctx context.Context) ([]core.LedgerRow, error) {
	if err := c.resolveSheet(ctx); err != nil {
		return nil, err
	}
	rng := c.a1("A:M")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]core.LedgerRow, 0, len(resp.Values))
	for i, values := range resp.Values {
		if i == 0 {
			continue
		}
		cells := toStrings(values)
		out = append(out, core.LedgerRow{Index: i + 1, Record: core.RecordFromCells(cells), Raw: cells})
	}
	return out, nil
}

func (c *Client) resolveSheet(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if c.sheetTitle != "" {
		return nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields(googleapi.Field("sheets.properties")).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet %s: %w", c.spreadsheetID, err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return fmt.Errorf("spreadsheet %s has no worksheets", c.spreadsheetID)
	}
	c.sheetTitle = ss.Sheets[0].Properties.Title
	c.sheetID = ss.Sheets[0].Properties.SheetId
	return nil
}

func (c *Client) a1(cells string) string {
	return quoteSheet(c.sheetTitle) + "!" + cells
}

func (c *Client) formatHeader(ctx context.Context) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{
		{RepeatCell: &gsheet.RepeatCellRequest{
			Range: c.rowRange(1),
			Cell: &gsheet.CellData{UserEnteredFormat: &gsheet.CellFormat{
				BackgroundColor:     hexColor("1565C0"),
				HorizontalAlignment: "CENTER",
				TextFormat: &gsheet.TextFormat{
					Bold:            true,
					FontSize:        11,
					ForegroundColor: hexColor("FFFFFF"),
				},
			}},
			Fields: "userEnteredFormat(backgroundColor,horizontalAlignment,textFormat)",
		}},
		{UpdateSheetProperties: &gsheet.UpdateSheetPropertiesRequest{
			Properties: &gsheet.SheetProperties{
				SheetId:        c.sheetID,
				GridProperties: &gsheet.GridProperties{FrozenRowCount: 1},
			},
			Fields: "gridProperties.frozenRowCount",
		}},
	}}
	_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	return err
}

func (c *Client) colorRow(ctx context.Context, row int, color string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{
		{RepeatCell: &gsheet.RepeatCellRequest{
			Range: c.rowRange(row),
			Cell: &gsheet.CellData{UserEnteredFormat: &gsheet.CellFormat{
				BackgroundColor: hexColor(color),
			}},
			Fields: "userEnteredFormat.backgroundColor",
		}},
	}}
	_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	return err
}

// rowRange covers the 13 ledger columns of the 1-based row.
func (c *Client) rowRange(row int) *gsheet.GridRange {
	return &gsheet.GridRange{
		SheetId:          c.sheetID,
		StartRowIndex:    int64(row - 1),
		EndRowIndex:      int64(row),
		StartColumnIndex: 0,
		EndColumnIndex:   core.ColumnCount,
		ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
	}
}

// rowFromRange extracts the first row number of an A1 range such as
// "'Masraflar'!A5:M5".
func rowFromRange(rng string) (int, error) {
	cells := rng
	if i := strings.LastIndex(cells, "!"); i >= 0 {
		cells = cells[i+1:]
	}
	if i := strings.Index(cells, ":"); i >= 0 {
		cells = cells[:i]
	}
	digits := strings.TrimLeftFunc(cells, func(r rune) bool { return r < '0' || r > '9' })
	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 {
		return 0, fmt.Errorf("unexpected updated range %q", rng)
	}
	return row, nil
}

// hexColor converts "RRGGBB" into the 0..1 components the API expects.
func hexColor(hex string) *gsheet.Color {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil || len(strings.TrimPrefix(hex, "#")) != 6 {
		v, _ = strconv.ParseUint(core.FallbackColor, 16, 32)
	}
	return &gsheet.Color{
		Red:   float64((v>>16)&0xFF) / 255,
		Green: float64((v>>8)&0xFF) / 255,
		Blue:  float64(v&0xFF) / 255,
	}
}

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}
