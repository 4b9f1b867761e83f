package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"demonstrativo/internal/core"
	applog "demonstrativo/internal/log"
	ports "demonstrativo/internal/sheets"

	_ "modernc.org/sqlite"
)

var (
	_ ports.LedgerReader = (*SQLiteRepository)(nil)
	_ ports.LedgerWriter = (*SQLiteRepository)(nil)
	_ ports.Pinger       = (*SQLiteRepository)(nil)
)

// SQLiteRepository mirrors the ledger so the dashboard can serve it without
// reaching the spreadsheet on every request.
type SQLiteRepository struct {
	db     *sql.DB
	source string
}

// SyncInfo describes the last mirror refresh.
type SyncInfo struct {
	SyncedAt time.Time
	RowCount int
	Source   string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// WithSource labels subsequent syncs with the upstream location.
func (r *SQLiteRepository) WithSource(source string) *SQLiteRepository {
	r.source = source
	return r
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping implements sheets.Pinger
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ReplaceLedger implements sheets.LedgerWriter. The previous mirror is
// replaced atomically; rows keep their source order.
func (r *SQLiteRepository) ReplaceLedger(ctx context.Context, t core.Table) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_columns`); err != nil {
		return fmt.Errorf("clear columns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_rows`); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}

	colStmt, err := tx.PrepareContext(ctx, `INSERT INTO ledger_columns (position, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare column insert: %w", err)
	}
	defer colStmt.Close()
	for i, name := range t.Header {
		if _, err := colStmt.ExecContext(ctx, i, name); err != nil {
			return fmt.Errorf("insert column %q: %w", name, err)
		}
	}

	rowStmt, err := tx.PrepareContext(ctx, `INSERT INTO ledger_rows (seq, cells) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer rowStmt.Close()
	for i, row := range t.Rows {
		cells, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if _, err := rowStmt.ExecContext(ctx, i, string(cells)); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	syncedAt := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_syncs (synced_at, row_count, source) VALUES (?, ?, ?)`,
		syncedAt.Format(time.RFC3339Nano), len(t.Rows), r.source); err != nil {
		return fmt.Errorf("record sync: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Ledger mirror replaced",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldOperation, applog.OpReplace,
		"columns", len(t.Header),
		"rows", len(t.Rows),
		applog.FieldSource, r.source)
	return nil
}

// ReadLedger implements sheets.LedgerReader
func (r *SQLiteRepository) ReadLedger(ctx context.Context) (core.Table, error) {
	var t core.Table

	cols, err := r.db.QueryContext(ctx, `SELECT name FROM ledger_columns ORDER BY position`)
	if err != nil {
		return core.Table{}, fmt.Errorf("query columns: %w", err)
	}
	defer cols.Close()
	for cols.Next() {
		var name string
		if err := cols.Scan(&name); err != nil {
			return core.Table{}, fmt.Errorf("scan column: %w", err)
		}
		t.Header = append(t.Header, name)
	}
	if err := cols.Err(); err != nil {
		return core.Table{}, fmt.Errorf("iterate columns: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT seq, cells FROM ledger_rows ORDER BY seq`)
	if err != nil {
		return core.Table{}, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			seq   int64
			cells string
		)
		if err := rows.Scan(&seq, &cells); err != nil {
			return core.Table{}, fmt.Errorf("scan row: %w", err)
		}
		var raw core.RawRow
		if err := json.Unmarshal([]byte(cells), &raw); err != nil {
			return core.Table{}, fmt.Errorf("decode row %d: %w", seq, err)
		}
		t.Rows = append(t.Rows, raw)
	}
	if err := rows.Err(); err != nil {
		return core.Table{}, fmt.Errorf("iterate rows: %w", err)
	}

	return t, nil
}

// LastSync returns the most recent mirror refresh. ok is false when the
// mirror was never filled.
func (r *SQLiteRepository) LastSync(ctx context.Context) (info SyncInfo, ok bool, err error) {
	var syncedAt string
	err = r.db.QueryRowContext(ctx,
		`SELECT synced_at, row_count, source FROM ledger_syncs ORDER BY id DESC LIMIT 1`).
		Scan(&syncedAt, &info.RowCount, &info.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncInfo{}, false, nil
	}
	if err != nil {
		return SyncInfo{}, false, fmt.Errorf("query last sync: %w", err)
	}
	info.SyncedAt, err = time.Parse(time.RFC3339Nano, syncedAt)
	if err != nil {
		return SyncInfo{}, false, fmt.Errorf("parse sync time %q: %w", syncedAt, err)
	}
	return info, true, nil
}
