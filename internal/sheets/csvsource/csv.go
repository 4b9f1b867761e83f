// Package csvsource reads the ledger as CSV, either from the public Google
// Visualization export of a sheet or from a local file.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"demonstrativo/internal/core"
	ports "demonstrativo/internal/sheets"
)

// maxBody bounds how much of a remote CSV export is read.
const maxBody = 32 << 20

var (
	_ ports.LedgerReader = (*Source)(nil)
	_ ports.Pinger       = (*Source)(nil)
)

// Source reads a CSV ledger from an http(s) URL or a file path.
type Source struct {
	location string
	client   *http.Client
}

// GvizURL returns the CSV export URL of one tab of a spreadsheet.
func GvizURL(spreadsheetID, sheetName string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s",
		url.PathEscape(spreadsheetID), url.QueryEscape(sheetName))
}

// New returns a Source for location. A nil client gets a pooled default.
func New(location string, client *http.Client) (*Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("missing CSV source")
	}
	if client == nil {
		client = newHTTPClientWithPooling()
	}
	return &Source{location: location, client: client}, nil
}

// Source describes where the ledger is read from, for logs.
func (s *Source) Source() string { return s.location }

func (s *Source) remote() bool {
	return strings.HasPrefix(s.location, "http://") || strings.HasPrefix(s.location, "https://")
}

// ReadLedger fetches and parses the CSV.
func (s *Source) ReadLedger(ctx context.Context) (core.Table, error) {
	body, err := s.open(ctx)
	if err != nil {
		return core.Table{}, err
	}
	defer body.Close()

	t, err := Parse(io.LimitReader(body, maxBody))
	if err != nil {
		return core.Table{}, fmt.Errorf("parse %s: %w", s.location, err)
	}
	slog.DebugContext(ctx, "Ledger read from CSV", "source", s.location, "rows", t.Len())
	return t, nil
}

// Ping checks the source can be opened.
func (s *Source) Ping(ctx context.Context) error {
	if !s.remote() {
		if _, err := os.Stat(s.location); err != nil {
			return fmt.Errorf("stat %s: %w", s.location, err)
		}
		return nil
	}
	body, err := s.open(ctx)
	if err != nil {
		return err
	}
	return body.Close()
}

func (s *Source) open(ctx context.Context) (io.ReadCloser, error) {
	if !s.remote() {
		f, err := os.Open(s.location)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", s.location, err)
		}
		return f, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.location, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %d", s.location, resp.StatusCode)
	}
	return resp.Body, nil
}

// Parse reads CSV whose first record is the header. Ragged rows are allowed
// and cells are trimmed. A leading byte order mark is consumed before
// tokenising; a UTF-16 mark switches decoding to UTF-16.
func Parse(r io.Reader) (core.Table, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var matrix [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.Table{}, err
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		matrix = append(matrix, rec)
	}
	return ports.FromValues(matrix), nil
}

// newHTTPClientWithPooling creates an HTTP client for the export endpoint
// with connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
