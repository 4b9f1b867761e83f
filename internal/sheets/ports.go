package sheets

import (
	"context"

	"demonstrativo/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerReader loads the invoice/payment table. Header keeps the
	// source column order and Rows keep the source row order.
	LedgerReader interface {
		ReadLedger(ctx context.Context) (core.Table, error)
	}

	// Pinger is implemented by sources that can check reachability without
	// reading the whole ledger.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// LedgerWriter replaces a stored copy of the ledger.
	LedgerWriter interface {
		ReplaceLedger(ctx context.Context, t core.Table) error
	}
)

// FromValues turns a values matrix whose first row is the header into a
// Table. Blank header cells are named by position; rows with no non-empty
// cell are skipped.
func FromValues(values [][]string) core.Table {
	if len(values) == 0 {
		return core.Table{}
	}
	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = h
		if h == "" {
			header[i] = columnName(i)
		}
	}
	t := core.Table{Header: header, Rows: make([]core.RawRow, 0, len(values)-1)}
	for _, cells := range values[1:] {
		if isBlank(cells) {
			continue
		}
		r := make(core.RawRow, len(header))
		for i, h := range header {
			if i < len(cells) {
				r[h] = cells[i]
			} else {
				r[h] = ""
			}
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// columnName returns the spreadsheet letter for a zero-based column index.
func columnName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}
