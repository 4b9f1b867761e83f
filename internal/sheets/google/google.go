package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"demonstrativo/internal/core"
	ports "demonstrativo/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab holding the invoice/payment ledger.
const DefaultSheetName = "DEMONSTRATIVO"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	columns       string
}

// Ensure interface conformance
var (
	_ ports.LedgerReader = (*Client)(nil)
	_ ports.Pinger       = (*Client)(nil)
)

// Options configures a Client.
type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// OptionsFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME and the
// service account variables.
func OptionsFromEnv() Options {
	return Options{
		SpreadsheetID:      strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:          strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		ServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
}

// NewFromEnv creates a Sheets client using environment variables.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, OptionsFromEnv())
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if opts.SheetName == "" {
		opts.SheetName = DefaultSheetName
	}
	creds, err := credentials(opts)
	if err != nil {
		return nil, err
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     opts.SheetName,
		columns:       "A:Z",
	}, nil
}

// credentials resolves service account JSON from inline value, file or
// GOOGLE_APPLICATION_CREDENTIALS.
func credentials(opts Options) ([]byte, error) {
	file := opts.ServiceAccountFile
	if opts.ServiceAccountJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case opts.ServiceAccountJSON != "":
		return []byte(opts.ServiceAccountJSON), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func newSheetsService(ctx context.Context, credentialsJSON []byte) (*gsheet.Service, error) {
	slog.DebugContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadLedger reads the whole ledger tab; the first row is the header.
func (c *Client) ReadLedger(ctx context.Context) (core.Table, error) {
	if c.svc == nil {
		return core.Table{}, errors.New("sheets service not initialized")
	}
	rng := c.valueRange()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return core.Table{}, fmt.Errorf("read %s: %w", rng, err)
	}
	t := parseValues(resp.Values)
	slog.DebugContext(ctx, "Ledger read from Google Sheets", "range", rng, "rows", t.Len())
	return t, nil
}

// Ping checks the spreadsheet is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet %s: %w", c.spreadsheetID, err)
	}
	return nil
}

// Source describes where the client reads from, for logs.
func (c *Client) Source() string {
	return c.spreadsheetID + "/" + c.valueRange()
}

func (c *Client) valueRange() string {
	return quoteSheet(c.sheetName) + "!" + c.columns
}

// quoteSheet wraps sheet names that are not plain identifiers in A1 quotes.
func quoteSheet(name string) string {
	for _, r := range name {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			return "'" + strings.ReplaceAll(name, "'", "''") + "'"
		}
	}
	return name
}
