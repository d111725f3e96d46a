package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"masraf/internal/core"
)

// Serialized makes a ledger single-writer: OpenOrCreate and Append never run
// concurrently, so row indices stay strictly increasing when several webhook
// requests append at once. Waiting honours ctx cancellation.
type Serialized struct {
	inner Ledger
	sem   *semaphore.Weighted
}

var _ Ledger = (*Serialized)(nil)

func NewSerialized(inner Ledger) *Serialized {
	return &Serialized{inner: inner, sem: semaphore.NewWeighted(1)}
}

func (s *Serialized) OpenOrCreate(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: wait for ledger: %w", core.ErrPersistFailure, err)
	}
	defer s.sem.Release(1)
	return s.inner.OpenOrCreate(ctx)
}

func (s *Serialized) Append(ctx context.Context, r core.ExpenseRecord) (int, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return 0, fmt.Errorf("%w: wait for ledger: %w", core.ErrPersistFailure, err)
	}
	defer s.sem.Release(1)
	return s.inner.Append(ctx, r)
}

// Rows does not take the writer slot; readers see the last saved state.
func (s *Serialized) Rows(ctx context.Context) ([]core.LedgerRow, error) {
	return s.inner.Rows(ctx)
}

func (s *Serialized) Info() Info { return s.inner.Info() }

// Notifying calls notify after every successful append.
type Notifying struct {
	Ledger
	notify func(ctx context.Context, row core.LedgerRow)
}

func NewNotifying(inner Ledger, notify func(ctx context.Context, row core.LedgerRow)) *Notifying {
	return &Notifying{Ledger: inner, notify: notify}
}

func (n *Notifying) Append(ctx context.Context, r core.ExpenseRecord) (int, error) {
	r = r.Normalized()
	row, err := n.Ledger.Append(ctx, r)
	if err != nil {
		return row, err
	}
	if n.notify != nil {
		n.notify(ctx, core.LedgerRow{Index: row, Record: r, Raw: r.Strings()})
	} else {
		slog.DebugContext(ctx, "Row appended without listener", "row", row)
	}
	return row, nil
}
