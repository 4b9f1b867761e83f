package memory

import (
	"context"
	"os"
	"sync"

	"demonstrativo/internal/core"
	ports "demonstrativo/internal/sheets"
	"demonstrativo/internal/sheets/csvsource"
)

var (
	_ ports.LedgerReader = (*Store)(nil)
	_ ports.LedgerWriter = (*Store)(nil)
)

// Store keeps a ledger table in memory.
type Store struct {
	mu    sync.Mutex
	table core.Table
}

func New(t core.Table) *Store {
	return &Store{table: clone(t)}
}

// NewFromFile seeds the store from a CSV file. A missing or unreadable file
// yields an empty ledger with the default header.
func NewFromFile(path string) *Store {
	f, err := os.Open(path)
	if err != nil {
		return New(core.Table{Header: DefaultHeader()})
	}
	defer f.Close()
	t, err := csvsource.Parse(f)
	if err != nil || len(t.Header) == 0 {
		return New(core.Table{Header: DefaultHeader()})
	}
	return New(t)
}

// ReadLedger returns a copy of the stored table.
func (s *Store) ReadLedger(_ context.Context) (core.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.table), nil
}

// ReplaceLedger swaps the stored table.
func (s *Store) ReplaceLedger(_ context.Context, t core.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = clone(t)
	return nil
}

// DefaultHeader is the column layout of an empty ledger.
func DefaultHeader() []string {
	return []string{"NOME DO CLIENTE", "DATA NF", "DATA PGTO", "PLANO", "SITUAÇÃO"}
}

func clone(t core.Table) core.Table {
	out := core.Table{
		Header: append([]string(nil), t.Header...),
		Rows:   make([]core.RawRow, len(t.Rows)),
	}
	for i, r := range t.Rows {
		cp := make(core.RawRow, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}
