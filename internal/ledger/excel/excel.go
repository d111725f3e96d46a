// Package excel implements the local-file ledger as a single .xlsx workbook.
//
// The workbook is opened and saved on every operation; nothing is cached
// between requests, so the file on disk is always the source of truth.
package excel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"masraf/internal/core"
	"masraf/internal/ledger"
)

// SheetName is the title given to the worksheet of a new workbook.
const SheetName = "Masraflar"

const (
	headerFill   = "1565C0"
	headerFont   = "FFFFFF"
	amountNumFmt = `#,##0.00 "TL"`
)

var columnWidths = [core.ColumnCount]float64{12, 8, 16, 30, 12, 12, 14, 25, 14, 12, 16, 18, 25}

type Ledger struct {
	path string
}

var _ ledger.Ledger = (*Ledger)(nil)

func New(path string) *Ledger {
	return &Ledger{path: path}
}

func (l *Ledger) Info() ledger.Info {
	return ledger.Info{Backend: "excel", Location: l.path}
}

// OpenOrCreate writes a new workbook with the styled header when the file
// does not exist yet. An existing workbook is only opened and closed.
func (l *Ledger) OpenOrCreate(ctx context.Context) error {
	f, created, err := l.open()
	if err != nil {
		return err
	}
	defer f.Close()
	if created {
		slog.InfoContext(ctx, "Created ledger workbook", "path", l.path, "sheet", SheetName)
	}
	return nil
}

// Append writes the record on the next free row, fills the whole row with the
// category color and saves the workbook before returning the row index.
func (l *Ledger) Append(ctx context.Context, r core.ExpenseRecord) (int, error) {
	r = r.Normalized()
	if err := r.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrPersistFailure, err)
	}
	f, _, err := l.open()
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %w", core.ErrPersistFailure, l.path, err)
	}
	// The header occupies row 1 even if the sheet was emptied by hand.
	next := len(rows) + 1
	if next < 2 {
		next = 2
	}

	cell, err := excelize.CoordinatesToCellName(1, next)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrPersistFailure, err)
	}
	values := r.Values()
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return 0, fmt.Errorf("%w: write row %d: %w", core.ErrPersistFailure, next, err)
	}
	if err := l.styleRow(f, sheet, next, r.Category.Color()); err != nil {
		return 0, fmt.Errorf("%w: style row %d: %w", core.ErrPersistFailure, next, err)
	}
	if err := f.Save(); err != nil {
		return 0, fmt.Errorf("%w: save %s: %w", core.ErrPersistFailure, l.path, err)
	}

	slog.InfoContext(ctx, "Expense saved to workbook",
		"path", l.path,
		"row", next,
		"category", string(r.Category),
		"amount", core.FormatAmount(r.Amount))
	return next, nil
}

// Rows returns every data row with raw (unformatted) cell values.
func (l *Ledger) Rows(_ context.Context) ([]core.LedgerRow, error) {
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	out := make([]core.LedgerRow, 0, len(rows))
	for i, cells := range rows {
		if i == 0 {
			continue
		}
		out = append(out, core.LedgerRow{Index: i + 1, Record: core.RecordFromCells(cells), Raw: cells})
	}
	return out, nil
}

// open returns the workbook, creating and saving it first when missing.
func (l *Ledger) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(l.path)
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, fmt.Errorf("%w: open %s: %w", core.ErrPersistFailure, l.path, err)
	}

	if dir := filepath.Dir(l.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("%w: create directory %s: %w", core.ErrPersistFailure, dir, err)
		}
	}
	f = excelize.NewFile()
	if err := writeHeader(f); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("%w: write header: %w", core.ErrPersistFailure, err)
	}
	if err := f.SaveAs(l.path); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("%w: save %s: %w", core.ErrPersistFailure, l.path, err)
	}
	return f, true, nil
}

func writeHeader(f *excelize.File) error {
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	header := make([]any, 0, core.ColumnCount)
	for _, c := range core.Columns {
		header = append(header, c)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Font:      &excelize.Font{Bold: true, Color: headerFont, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(core.ColumnCount, 1)
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return err
	}
	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return err
		}
	}
	return f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// styleRow fills the row with color; the amount column also gets the currency format.
func (l *Ledger) styleRow(f *excelize.File, sheet string, row int, color string) error {
	fill := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	plain, err := f.NewStyle(&excelize.Style{Fill: fill})
	if err != nil {
		return err
	}
	numFmt := amountNumFmt
	amount, err := f.NewStyle(&excelize.Style{Fill: fill, CustomNumFmt: &numFmt})
	if err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(core.ColumnCount, row)
	if err := f.SetCellStyle(sheet, first, last, plain); err != nil {
		return err
	}
	amountCell, _ := excelize.CoordinatesToCellName(core.ColAmount+1, row)
	return f.SetCellStyle(sheet, amountCell, amountCell, amount)
}
