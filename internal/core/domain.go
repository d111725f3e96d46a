package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Layouts used for the date and time columns.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	DefaultCurrency = "TRY"
)

// Columns is the fixed header of every ledger, in column order.
var Columns = [ColumnCount]string{
	"Date", "Time", "Category", "Description", "Amount", "Currency",
	"Document Type", "Vendor", "Tax ID", "VAT Amount",
	"Payment Method", "Source", "Notes",
}

// ColumnCount is the number of positional fields of a ledger row.
const ColumnCount = 13

// Column positions.
const (
	ColDate = iota
	ColTime
	ColCategory
	ColDescription
	ColAmount
	ColCurrency
	ColDocumentType
	ColVendor
	ColTaxID
	ColVATAmount
	ColPaymentMethod
	ColSource
	ColNotes
)

type (
	// ExpenseRecord is one extracted financial event.
	ExpenseRecord struct {
		Date          string // YYYY-MM-DD
		Time          string // HH:MM
		Category      Category
		Description   string
		Amount        decimal.NullDecimal
		Currency      string
		DocumentType  DocumentType
		Vendor        string
		TaxID         string
		VATAmount     decimal.NullDecimal
		PaymentMethod PaymentMethod
		Source        string // sender address, set by the pipeline
		Notes         string
	}

	// LedgerRow is a persisted record with its 1-based row index.
	// Raw holds the cells as the backend returned them.
	LedgerRow struct {
		Index  int
		Record ExpenseRecord
		Raw    []string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTime     = errors.New("invalid time")
	ErrInvalidCategory = errors.New("invalid category")
)

// Color returns the presentation color of the row, derived from its category.
func (r LedgerRow) Color() string {
	return r.Record.Category.Color()
}

// Validate checks the record is ready to be persisted.
func (e ExpenseRecord) Validate() error {
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return ErrInvalidDate
	}
	if _, err := time.Parse(TimeLayout, e.Time); err != nil {
		return ErrInvalidTime
	}
	if !e.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}

// Normalized maps the category onto the closed set; unknown values become
// CategoryOther.
func (e ExpenseRecord) Normalized() ExpenseRecord {
	e.Category = ParseCategory(string(e.Category))
	return e
}

// WithDefaults fills the fields the ledger never stores empty:
// date and time from now, category Other and currency TRY.
func (e ExpenseRecord) WithDefaults(now time.Time) ExpenseRecord {
	if _, err := time.Parse(DateLayout, strings.TrimSpace(e.Date)); err != nil {
		e.Date = now.Format(DateLayout)
	} else {
		e.Date = strings.TrimSpace(e.Date)
	}
	if t, ok := parseClock(e.Time); ok {
		e.Time = t
	} else {
		e.Time = now.Format(TimeLayout)
	}
	e = e.Normalized()
	e.Currency = strings.ToUpper(strings.TrimSpace(e.Currency))
	if e.Currency == "" {
		e.Currency = DefaultCurrency
	}
	return e
}

// Values returns the 13 cells of the record in column order. Amounts are
// float64 so that typed backends store them as numbers; absent amounts are nil.
func (e ExpenseRecord) Values() []any {
	return []any{
		e.Date,
		e.Time,
		string(e.Category),
		e.Description,
		decimalCell(e.Amount),
		e.Currency,
		string(e.DocumentType),
		e.Vendor,
		e.TaxID,
		decimalCell(e.VATAmount),
		string(e.PaymentMethod),
		e.Source,
		e.Notes,
	}
}

// Strings returns the record as 13 text cells; absent amounts are empty.
func (e ExpenseRecord) Strings() []string {
	return []string{
		e.Date,
		e.Time,
		string(e.Category),
		e.Description,
		decimalString(e.Amount),
		e.Currency,
		string(e.DocumentType),
		e.Vendor,
		e.TaxID,
		decimalString(e.VATAmount),
		string(e.PaymentMethod),
		e.Source,
		e.Notes,
	}
}

// RecordFromCells rebuilds a record from stored cells. It never fails:
// missing cells read as empty and malformed amounts read as absent.
func RecordFromCells(cells []string) ExpenseRecord {
	get := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}
	return ExpenseRecord{
		Date:          get(ColDate),
		Time:          get(ColTime),
		Category:      Category(get(ColCategory)),
		Description:   get(ColDescription),
		Amount:        ParseAmount(get(ColAmount)),
		Currency:      get(ColCurrency),
		DocumentType:  DocumentType(get(ColDocumentType)),
		Vendor:        get(ColVendor),
		TaxID:         get(ColTaxID),
		VATAmount:     ParseAmount(get(ColVATAmount)),
		PaymentMethod: PaymentMethod(get(ColPaymentMethod)),
		Source:        get(ColSource),
		Notes:         get(ColNotes),
	}
}

// IsHeader reports whether cells are the ledger header row.
func IsHeader(cells []string) bool {
	if len(cells) < ColumnCount {
		return false
	}
	for i, c := range Columns {
		if strings.TrimSpace(cells[i]) != c {
			return false
		}
	}
	return true
}

// parseClock accepts HH:MM and HH:MM:SS and returns HH:MM.
func parseClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout), true
		}
	}
	return "", false
}

func decimalCell(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func decimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
