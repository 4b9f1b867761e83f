package backend

import (
	"context"
	"fmt"
	"time"

	"demonstrativo/internal/core"
	applog "demonstrativo/internal/log"
	"demonstrativo/internal/sheets"
	"demonstrativo/internal/sheets/csvsource"
	gsheet "demonstrativo/internal/sheets/google"
	"demonstrativo/internal/sheets/memory"
	"demonstrativo/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Default(applog.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return f.create(ctx, config, config.Type)
}

// CreateUpstream implements Factory.CreateUpstream
func (f *DefaultFactory) CreateUpstream(ctx context.Context, config Config) (*Result, error) {
	if !config.Upstream.IsUpstream() {
		return nil, fmt.Errorf("invalid upstream type: %s", config.Upstream)
	}
	if err := config.validateType(config.Upstream); err != nil {
		return nil, err
	}
	return f.create(ctx, config, config.Upstream)
}

func (f *DefaultFactory) create(ctx context.Context, config Config, t BackendType) (*Result, error) {
	var (
		res *Result
		err error
	)
	switch t {
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	case CSVBackend:
		res, err = f.createCSVBackend(config)
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", t)
	}
	if err != nil {
		return nil, err
	}

	res.Type = t
	if config.Timeout > 0 {
		res.Reader = withTimeout(res.Reader, config.Timeout)
	}
	return res, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", applog.FieldSource, cli.Source())

	return &Result{
		Reader: cli,
		Pinger: cli,
		Source: cli.Source(),
	}, nil
}

func (f *DefaultFactory) createCSVBackend(config Config) (*Result, error) {
	src, err := csvsource.New(config.CSVLocation, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize CSV source: %w", err)
	}

	f.logger.Info("Initialized CSV backend", applog.FieldSource, src.Source())

	return &Result{
		Reader: src,
		Pinger: src,
		Source: src.Source(),
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{
		Reader:  repo,
		Pinger:  repo,
		Mirror:  repo,
		Source:  "sqlite:" + config.SQLiteDBPath,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	var store *memory.Store
	source := "memory"
	if config.MemorySeedFile != "" {
		store = memory.NewFromFile(config.MemorySeedFile)
		source = "memory:" + config.MemorySeedFile
	} else {
		store = memory.New(core.Table{Header: memory.DefaultHeader()})
	}

	f.logger.Info("Initialized memory backend", applog.FieldSource, source)

	return &Result{
		Reader: store,
		Source: source,
	}, nil
}

// timeoutReader bounds every read of the wrapped source.
type timeoutReader struct {
	sheets.LedgerReader
	timeout time.Duration
}

func withTimeout(r sheets.LedgerReader, d time.Duration) sheets.LedgerReader {
	return timeoutReader{LedgerReader: r, timeout: d}
}

func (t timeoutReader) ReadLedger(ctx context.Context) (core.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.LedgerReader.ReadLedger(ctx)
}
