package ledger

import (
	"context"

	"masraf/internal/core"
)

// Ports for ledger backends.
type (
	// Writer appends records. Append returns the 1-based row index used;
	// row 1 is always the header, so the first data row is 2.
	Writer interface {
		Append(ctx context.Context, r core.ExpenseRecord) (row int, err error)
	}

	// Reader returns every data row (header excluded) in storage order.
	Reader interface {
		Rows(ctx context.Context) ([]core.LedgerRow, error)
	}

	// Ledger is the append-only tabular store shared by all backends.
	Ledger interface {
		Writer
		Reader
		// OpenOrCreate creates the store and writes the header if absent.
		// Calling it on an existing store leaves the header untouched.
		OpenOrCreate(ctx context.Context) error
		// Info identifies the backend for health reporting.
		Info() Info
	}
)

// Info describes a ledger instance.
type Info struct {
	Backend  string `json:"backend"`
	Location string `json:"ledger"`
}
