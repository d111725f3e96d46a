// Package storage implements the ledger on an embedded SQLite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"masraf/internal/core"
	"masraf/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteLedger stores one table row per ledger row. The row index reported to
// callers is id+1, so the first record is row 2 as in the spreadsheet backends.
type SQLiteLedger struct {
	db   *sql.DB
	path string
}

var _ ledger.Ledger = (*SQLiteLedger)(nil)

func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLiteLedger{db: db, path: dbPath}, nil
}

func (l *SQLiteLedger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

func (l *SQLiteLedger) Info() ledger.Info {
	return ledger.Info{Backend: "sqlite", Location: l.path}
}

// OpenOrCreate applies pending migrations.
func (l *SQLiteLedger) OpenOrCreate(ctx context.Context) error {
	if err := RunMigrations(l.path); err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistFailure, err)
	}
	slog.InfoContext(ctx, "SQLite ledger ready", "path", l.path)
	return nil
}

const insertRow = `INSERT INTO ledger_rows
	(date, time, category, description, amount, currency, document_type,
	 vendor, tax_id, vat_amount, payment_method, source, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (l *SQLiteLedger) Append(ctx context.Context, r core.ExpenseRecord) (int, error) {
	r = r.Normalized()
	if err := r.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrPersistFailure, err)
	}
	res, err := l.db.ExecContext(ctx, insertRow,
		r.Date, r.Time, string(r.Category), r.Description,
		nullString(r.Amount), r.Currency, string(r.DocumentType),
		r.Vendor, r.TaxID, nullString(r.VATAmount),
		string(r.PaymentMethod), r.Source, r.Notes)
	if err != nil {
		return 0, fmt.Errorf("%w: insert row: %w", core.ErrPersistFailure, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: last insert id: %w", core.ErrPersistFailure, err)
	}
	row := int(id) + 1
	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"row", row,
		"category", string(r.Category),
		"amount", core.FormatAmount(r.Amount))
	return row, nil
}

const selectRows = `SELECT id, date, time, category, description, amount, currency,
	document_type, vendor, tax_id, vat_amount, payment_method, source, notes
	FROM ledger_rows ORDER BY id`

func (l *SQLiteLedger) Rows(ctx context.Context) ([]core.LedgerRow, error) {
	rows, err := l.db.QueryContext(ctx, selectRows)
	if err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerRow
	for rows.Next() {
		var (
			id                         int64
			r                          core.ExpenseRecord
			category, docType, payment string
			amount, vat                decimal.NullDecimal
		)
		if err := rows.Scan(&id, &r.Date, &r.Time, &category, &r.Description,
			&amount, &r.Currency, &docType, &r.Vendor, &r.TaxID, &vat,
			&payment, &r.Source, &r.Notes); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		r.Category = core.Category(category)
		r.DocumentType = core.DocumentType(docType)
		r.PaymentMethod = core.PaymentMethod(payment)
		r.Amount, r.VATAmount = amount, vat
		out = append(out, core.LedgerRow{Index: int(id) + 1, Record: r, Raw: r.Strings()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return out, nil
}

func nullString(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}
