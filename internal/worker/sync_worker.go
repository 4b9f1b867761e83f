// Package worker keeps the SQLite ledger mirror in step with the upstream
// spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"demonstrativo/internal/amqp"
	applog "demonstrativo/internal/log"
	"demonstrativo/internal/sheets"
)

// ErrEmptyLedger is returned when the upstream read yields no header. The
// mirror is left untouched.
var ErrEmptyLedger = errors.New("upstream ledger has no header")

// Publisher announces a completed sync
type Publisher interface {
	PublishLedgerSynced(ctx context.Context, msg *amqp.LedgerSyncedMessage) error
}

// Config holds configuration for the sync worker
type Config struct {
	// Interval between syncs (default: 5m)
	Interval time.Duration

	// Timeout bounds one upstream read plus mirror write (default: 30s)
	Timeout time.Duration

	// Source labels the upstream in logs and messages
	Source string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
		Timeout:  30 * time.Second,
	}
}

// SyncWorker copies the upstream ledger into the mirror on a fixed interval
type SyncWorker struct {
	source    sheets.LedgerReader
	sink      sheets.LedgerWriter
	publisher Publisher
	config    Config
	logger    *applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncWorker creates a worker. publisher may be nil.
func NewSyncWorker(source sheets.LedgerReader, sink sheets.LedgerWriter, publisher Publisher, config Config, logger *applog.Logger) *SyncWorker {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if logger == nil {
		logger = applog.Default(applog.ComponentWorker)
	}
	return &SyncWorker{
		source:    source,
		sink:      sink,
		publisher: publisher,
		config:    config,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// SyncOnce reads the upstream ledger, replaces the mirror and publishes a
// notification. A publish failure is logged but does not fail the sync: the
// mirror is already current.
func (w *SyncWorker) SyncOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	start := time.Now()
	t, err := w.source.ReadLedger(ctx)
	if err != nil {
		return 0, fmt.Errorf("read upstream ledger: %w", err)
	}
	if len(t.Header) == 0 {
		return 0, ErrEmptyLedger
	}

	if err := w.sink.ReplaceLedger(ctx, t); err != nil {
		return 0, fmt.Errorf("replace mirror: %w", err)
	}

	w.logger.InfoContext(ctx, "Ledger synced",
		applog.FieldOperation, applog.OpSync,
		applog.FieldSource, w.config.Source,
		applog.FieldInputRows, t.Len(),
		applog.FieldDuration, time.Since(start).Milliseconds())

	if w.publisher != nil {
		msg := amqp.NewLedgerSyncedMessage(t.Len(), w.config.Source)
		if err := w.publisher.PublishLedgerSynced(ctx, msg); err != nil {
			w.logger.WarnContext(ctx, "Failed to publish sync notification",
				applog.FieldOperation, applog.OpPublish,
				applog.FieldError, err)
		}
	}

	return t.Len(), nil
}

// Start runs an immediate sync and then one per interval until Stop is
// called or ctx is done. Returns an error if already running.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	w.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	w.stopCh, w.doneCh = stopCh, doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	w.logger.InfoContext(ctx, "Sync worker started",
		"interval", w.config.Interval,
		applog.FieldSource, w.config.Source)

	return nil
}

// Stop signals the loop and waits for the in-flight sync to finish. After a
// timed-out Stop, calling Stop again keeps waiting for the same loop.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.stopCh = nil
	w.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}

	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Sync worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Sync worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// IsRunning returns whether the loop is active
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Done is closed when the loop exits.
func (w *SyncWorker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doneCh
}

func (w *SyncWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.syncLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			w.syncLogged(ctx)
		}
	}
}

func (w *SyncWorker) syncLogged(ctx context.Context) {
	if _, err := w.SyncOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.ErrorContext(ctx, "Ledger sync failed",
			applog.FieldOperation, applog.OpSync,
			applog.FieldSource, w.config.Source,
			applog.FieldError, err)
	}
}
