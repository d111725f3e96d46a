package memory

import (
	"context"
	"fmt"
	"sync"

	"masraf/internal/core"
	"masraf/internal/ledger"
)

// Store keeps the ledger in process memory. Used by tests and local demos.
type Store struct {
	mu     sync.Mutex
	header bool
	rows   [][]string

	// FailAppend makes Append fail, for exercising error paths.
	FailAppend error
}

var _ ledger.Ledger = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewWithRows returns an opened store pre-filled with raw data rows.
func NewWithRows(rows ...[]string) *Store {
	s := &Store{header: true}
	for _, r := range rows {
		s.rows = append(s.rows, append([]string(nil), r...))
	}
	return s
}

func (s *Store) OpenOrCreate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = true
	return nil
}

// Append stores the record and returns its row index.
func (s *Store) Append(_ context.Context, r core.ExpenseRecord) (int, error) {
	r = r.Normalized()
	if err := r.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrPersistFailure, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrPersistFailure, s.FailAppend)
	}
	s.header = true
	s.rows = append(s.rows, r.Strings())
	return len(s.rows) + 1, nil
}

// Rows returns copies of the stored rows.
func (s *Store) Rows(_ context.Context) ([]core.LedgerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.LedgerRow, 0, len(s.rows))
	for i, cells := range s.rows {
		raw := append([]string(nil), cells...)
		out = append(out, core.LedgerRow{Index: i + 2, Record: core.RecordFromCells(raw), Raw: raw})
	}
	return out, nil
}

// Len returns the number of data rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Store) Info() ledger.Info {
	return ledger.Info{Backend: "memory", Location: "mem"}
}
