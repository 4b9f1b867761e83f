package storage

import (
	"context"
	"path/filepath"
	"testing"

	"demonstrativo/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTable() core.Table {
	return core.Table{
		Header: []string{"NOME DO CLIENTE", "DATA NF", "DATA PGTO", "PLANO", "SITUAÇÃO"},
		Rows: []core.RawRow{
			{"NOME DO CLIENTE": "Ana", "DATA NF": "10/06/2024", "DATA PGTO": "", "PLANO": "Unimed", "SITUAÇÃO": "A PAGAR"},
			{"NOME DO CLIENTE": "Bruno", "DATA NF": "12/06/2024", "DATA PGTO": "20/06/2024", "PLANO": "Amil", "SITUAÇÃO": "Pago"},
			{"NOME DO CLIENTE": "Ana", "DATA NF": "28/06/2024", "DATA PGTO": "", "PLANO": "Unimed", "SITUAÇÃO": "Parcial"},
		},
	}
}

func TestSQLiteRepository_EmptyMirror(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	got, err := repo.ReadLedger(ctx)
	if err != nil {
		t.Fatalf("ReadLedger() error = %v", err)
	}
	if len(got.Header) != 0 || len(got.Rows) != 0 {
		t.Errorf("expected empty table, got %d columns and %d rows", len(got.Header), len(got.Rows))
	}

	if _, ok, err := repo.LastSync(ctx); err != nil || ok {
		t.Errorf("LastSync() = ok %v, err %v; want no sync", ok, err)
	}
}

func TestSQLiteRepository_ReplaceAndRead(t *testing.T) {
	repo := newTestRepo(t).WithSource("sheet:DEMONSTRATIVO")
	ctx := context.Background()
	want := sampleTable()

	if err := repo.ReplaceLedger(ctx, want); err != nil {
		t.Fatalf("ReplaceLedger() error = %v", err)
	}

	got, err := repo.ReadLedger(ctx)
	if err != nil {
		t.Fatalf("ReadLedger() error = %v", err)
	}

	if len(got.Header) != len(want.Header) {
		t.Fatalf("expected %d columns, got %d", len(want.Header), len(got.Header))
	}
	for i := range want.Header {
		if got.Header[i] != want.Header[i] {
			t.Errorf("column %d: expected %q, got %q", i, want.Header[i], got.Header[i])
		}
	}

	if len(got.Rows) != len(want.Rows) {
		t.Fatalf("expected %d rows, got %d", len(want.Rows), len(got.Rows))
	}
	// Row order carries the tie-break, so it must survive the mirror.
	for i := range want.Rows {
		for k, v := range want.Rows[i] {
			if got.Rows[i][k] != v {
				t.Errorf("row %d %s: expected %v, got %v", i, k, v, got.Rows[i][k])
			}
		}
	}

	info, ok, err := repo.LastSync(ctx)
	if err != nil || !ok {
		t.Fatalf("LastSync() = ok %v, err %v", ok, err)
	}
	if info.RowCount != 3 {
		t.Errorf("expected row count 3, got %d", info.RowCount)
	}
	if info.Source != "sheet:DEMONSTRATIVO" {
		t.Errorf("expected source to be recorded, got %q", info.Source)
	}
	if info.SyncedAt.IsZero() {
		t.Error("expected sync time to be set")
	}
}

func TestSQLiteRepository_ReplaceDropsPreviousMirror(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceLedger(ctx, sampleTable()); err != nil {
		t.Fatalf("first ReplaceLedger() error = %v", err)
	}

	smaller := core.Table{
		Header: []string{"NOME DO CLIENTE", "DATA NF"},
		Rows:   []core.RawRow{{"NOME DO CLIENTE": "Carla", "DATA NF": "01/07/2024"}},
	}
	if err := repo.ReplaceLedger(ctx, smaller); err != nil {
		t.Fatalf("second ReplaceLedger() error = %v", err)
	}

	got, err := repo.ReadLedger(ctx)
	if err != nil {
		t.Fatalf("ReadLedger() error = %v", err)
	}
	if len(got.Header) != 2 || len(got.Rows) != 1 {
		t.Fatalf("expected 2 columns and 1 row, got %d and %d", len(got.Header), len(got.Rows))
	}
	if got.Rows[0]["NOME DO CLIENTE"] != "Carla" {
		t.Errorf("expected Carla, got %v", got.Rows[0]["NOME DO CLIENTE"])
	}

	info, _, err := repo.LastSync(ctx)
	if err != nil {
		t.Fatalf("LastSync() error = %v", err)
	}
	if info.RowCount != 1 {
		t.Errorf("expected latest sync row count 1, got %d", info.RowCount)
	}
}

func TestSQLiteRepository_Ping(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first RunMigrations() error = %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
}
