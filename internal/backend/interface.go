// Package backend selects the ledger source named by DATA_BACKEND.
package backend

import (
	"context"
	"time"

	"demonstrativo/internal/sheets"
	"demonstrativo/internal/storage"
)

// CleanupFunc releases backend resources
type CleanupFunc func() error

// Result is a ready-to-use ledger source
type Result struct {
	Reader sheets.LedgerReader
	// Pinger is nil when the source cannot be checked cheaply
	Pinger sheets.Pinger
	// Mirror is set for the sqlite backend
	Mirror  *storage.SQLiteRepository
	Type    BackendType
	Source  string
	Cleanup CleanupFunc
}

// Close runs Cleanup if there is one
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend builds the reader the dashboard serves from
	CreateBackend(ctx context.Context, config Config) (*Result, error)
	// CreateUpstream builds the reader the mirror worker copies from
	CreateUpstream(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType
	// Upstream is the source the worker mirrors (sheets or csv)
	Upstream BackendType
	// Timeout bounds each ReadLedger call
	Timeout time.Duration

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// CSV specific: file path or URL
	CSVLocation string

	// Memory specific: optional CSV seed
	MemorySeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SheetsBackend, CSVBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// IsUpstream reports whether the worker can mirror from this backend
func (bt BackendType) IsUpstream() bool {
	return bt == SheetsBackend || bt == CSVBackend
}
