package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"demonstrativo/internal/amqp"
	"demonstrativo/internal/core"
	applog "demonstrativo/internal/log"
	"demonstrativo/internal/sheets"
	"demonstrativo/internal/sheets/memory"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.LedgerSyncedMessage
	err  error
}

func (p *fakePublisher) PublishLedgerSynced(_ context.Context, msg *amqp.LedgerSyncedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

type failingReader struct{ err error }

func (r failingReader) ReadLedger(context.Context) (core.Table, error) {
	return core.Table{}, r.err
}

func testLogger(w io.Writer) *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(w, nil)})
}

func upstreamTable() core.Table {
	return core.Table{
		Header: []string{"NOME DO CLIENTE", "DATA NF", "DATA PGTO", "PLANO", "SITUAÇÃO"},
		Rows: []core.RawRow{
			{"NOME DO CLIENTE": "Ana", "DATA NF": "10/06/2024", "DATA PGTO": "", "PLANO": "Unimed", "SITUAÇÃO": "A PAGAR"},
			{"NOME DO CLIENTE": "Bia", "DATA NF": "12/06/2024", "DATA PGTO": "20/06/2024", "PLANO": "Amil", "SITUAÇÃO": "Pago"},
		},
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Interval != 5*time.Minute {
		t.Errorf("expected Interval 5m, got %v", config.Interval)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("expected Timeout 30s, got %v", config.Timeout)
	}
}

func TestNewSyncWorker_FillsDefaults(t *testing.T) {
	w := NewSyncWorker(nil, nil, nil, Config{Source: "csv"}, nil)

	if w.config.Interval != 5*time.Minute {
		t.Errorf("expected default Interval, got %v", w.config.Interval)
	}
	if w.config.Timeout != 30*time.Second {
		t.Errorf("expected default Timeout, got %v", w.config.Timeout)
	}
	if w.config.Source != "csv" {
		t.Errorf("expected Source to be kept, got %q", w.config.Source)
	}
	if w.IsRunning() {
		t.Error("worker should not be running initially")
	}
}

func TestSyncOnce_ReplacesMirrorAndPublishes(t *testing.T) {
	source := memory.New(upstreamTable())
	sink := memory.New(core.Table{})
	pub := &fakePublisher{}
	w := NewSyncWorker(source, sink, pub, Config{Source: "test"}, testLogger(&bytes.Buffer{}))

	n, err := w.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows synced, got %d", n)
	}

	mirrored, _ := sink.ReadLedger(context.Background())
	if mirrored.Len() != 2 || len(mirrored.Header) != 5 {
		t.Errorf("mirror has %d columns and %d rows", len(mirrored.Header), mirrored.Len())
	}

	if pub.count() != 1 {
		t.Fatalf("expected 1 published message, got %d", pub.count())
	}
	if pub.msgs[0].Rows != 2 || pub.msgs[0].Source != "test" {
		t.Errorf("unexpected message %+v", pub.msgs[0])
	}
}

func TestSyncOnce_PublishFailureDoesNotFailSync(t *testing.T) {
	var logs bytes.Buffer
	pub := &fakePublisher{err: errors.New("broker down")}
	w := NewSyncWorker(memory.New(upstreamTable()), memory.New(core.Table{}), pub, Config{}, testLogger(&logs))

	if _, err := w.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if !bytes.Contains(logs.Bytes(), []byte("broker down")) {
		t.Errorf("expected publish failure to be logged, got %q", logs.String())
	}
}

func TestSyncOnce_KeepsMirrorOnUpstreamFailure(t *testing.T) {
	previous := upstreamTable()
	sink := memory.New(previous)
	pub := &fakePublisher{}

	tests := []struct {
		name    string
		source  sheets.LedgerReader
		wantErr error
	}{
		{"read error", failingReader{err: errors.New("quota exceeded")}, nil},
		{"empty sheet", memory.New(core.Table{}), ErrEmptyLedger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewSyncWorker(tt.source, sink, pub, Config{}, testLogger(&bytes.Buffer{}))

			_, err := w.SyncOnce(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}

			mirrored, _ := sink.ReadLedger(context.Background())
			if mirrored.Len() != previous.Len() {
				t.Errorf("mirror changed: %d rows, want %d", mirrored.Len(), previous.Len())
			}
		})
	}

	if pub.count() != 0 {
		t.Errorf("failed syncs must not publish, got %d messages", pub.count())
	}
}

func TestSyncWorker_StartStop(t *testing.T) {
	pub := &fakePublisher{}
	w := NewSyncWorker(memory.New(upstreamTable()), memory.New(core.Table{}), pub,
		Config{Interval: time.Hour}, testLogger(&bytes.Buffer{}))

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !w.IsRunning() {
		t.Error("worker should be running after Start")
	}
	if err := w.Start(ctx); err == nil {
		t.Error("expected error when starting already running worker")
	}

	// The first sync runs immediately.
	deadline := time.Now().Add(2 * time.Second)
	for pub.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if pub.count() != 1 {
		t.Errorf("expected the startup sync to publish once, got %d", pub.count())
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if w.IsRunning() {
		t.Error("worker should not be running after Stop")
	}
}

func TestSyncWorker_StopNotRunning(t *testing.T) {
	w := NewSyncWorker(nil, nil, nil, DefaultConfig(), nil)

	if err := w.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

type blockingReader struct {
	started chan struct{}
	release chan struct{}
}

func (r *blockingReader) ReadLedger(ctx context.Context) (core.Table, error) {
	close(r.started)
	select {
	case <-r.release:
		return upstreamTable(), nil
	case <-ctx.Done():
		return core.Table{}, ctx.Err()
	}
}

func TestSyncWorker_StopAfterTimeout(t *testing.T) {
	upstream := &blockingReader{started: make(chan struct{}), release: make(chan struct{})}
	w := NewSyncWorker(upstream, memory.New(core.Table{}), nil,
		Config{Interval: time.Hour}, testLogger(&bytes.Buffer{}))

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-upstream.started

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		err := w.Stop(ctx)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Stop #%d error = %v, want deadline exceeded", i+1, err)
		}
		if !w.IsRunning() {
			t.Fatalf("Stop #%d: worker should still be running while the sync is in flight", i+1)
		}
	}

	close(upstream.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("final Stop() error = %v", err)
	}
	if w.IsRunning() {
		t.Error("worker should not be running after Stop")
	}
	select {
	case <-w.Done():
	default:
		t.Error("Done should be closed after Stop")
	}
}
