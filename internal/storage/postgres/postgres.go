// Package postgres implements the ledger on a PostgreSQL table through pgx.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"masraf/internal/core"
	"masraf/internal/ledger"
)

// Ledger reports id+1 as the row index so the first record is row 2, the same
// as the spreadsheet backends. Sequence gaps after failed inserts keep the
// indices increasing but not contiguous.
type Ledger struct {
	Pool     *pgxpool.Pool
	url      string
	location string
}

var _ ledger.Ledger = (*Ledger)(nil)

func New(ctx context.Context, databaseURL string) (*Ledger, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Ledger{Pool: pool, url: databaseURL, location: redact(databaseURL)}, nil
}

func (l *Ledger) Close() error {
	l.Pool.Close()
	return nil
}

func (l *Ledger) Info() ledger.Info {
	return ledger.Info{Backend: "postgres", Location: l.location}
}

func (l *Ledger) OpenOrCreate(ctx context.Context) error {
	if err := RunMigrations(l.url); err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistFailure, err)
	}
	slog.InfoContext(ctx, "Postgres ledger ready", "location", l.location)
	return nil
}

const insertRow = `INSERT INTO ledger_rows
	(date, time, category, description, amount, currency, document_type,
	 vendor, tax_id, vat_amount, payment_method, source, notes)
	VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10::numeric, $11, $12, $13)
	RETURNING id`

func (l *Ledger) Append(ctx context.Context, r core.ExpenseRecord) (int, error) {
	r = r.Normalized()
	if err := r.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrPersistFailure, err)
	}
	var id int64
	err := l.Pool.QueryRow(ctx, insertRow,
		r.Date, r.Time, string(r.Category), r.Description,
		numericText(r.Amount), r.Currency, string(r.DocumentType),
		r.Vendor, r.TaxID, numericText(r.VATAmount),
		string(r.PaymentMethod), r.Source, r.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert row: %w", core.ErrPersistFailure, err)
	}
	row := int(id) + 1
	slog.InfoContext(ctx, "Expense saved to Postgres",
		"id", id,
		"row", row,
		"category", string(r.Category),
		"amount", core.FormatAmount(r.Amount))
	return row, nil
}

const selectRows = `SELECT id, date, time, category, description, amount::text, currency,
	document_type, vendor, tax_id, vat_amount::text, payment_method, source, notes
	FROM ledger_rows ORDER BY id`

func (l *Ledger) Rows(ctx context.Context) ([]core.LedgerRow, error) {
	rows, err := l.Pool.Query(ctx, selectRows)
	if err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanRow)
	if err != nil {
		return nil, fmt.Errorf("scan ledger rows: %w", err)
	}
	return out, nil
}

func scanRow(row pgx.CollectableRow) (core.LedgerRow, error) {
	var (
		id                         int64
		r                          core.ExpenseRecord
		category, docType, payment string
		amount, vat                *string
	)
	if err := row.Scan(&id, &r.Date, &r.Time, &category, &r.Description,
		&amount, &r.Currency, &docType, &r.Vendor, &r.TaxID, &vat,
		&payment, &r.Source, &r.Notes); err != nil {
		return core.LedgerRow{}, err
	}
	r.Category = core.Category(category)
	r.DocumentType = core.DocumentType(docType)
	r.PaymentMethod = core.PaymentMethod(payment)
	r.Amount, r.VATAmount = parseNumeric(amount), parseNumeric(vat)
	return core.LedgerRow{Index: int(id) + 1, Record: r, Raw: r.Strings()}, nil
}

// numericText returns nil for a missing amount so the column stays NULL.
func numericText(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func parseNumeric(s *string) decimal.NullDecimal {
	if s == nil {
		return decimal.NullDecimal{}
	}
	return core.ParseAmount(*s)
}

// redact drops the password from a connection URL before it is logged.
func redact(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.User == nil {
		return databaseURL
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
