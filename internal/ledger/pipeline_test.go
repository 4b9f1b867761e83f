package ledger

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"testing"

	"demonstrativo/internal/core"
	applog "demonstrativo/internal/log"
)

var header = []string{"NOME DO CLIENTE", "DATA NF", "DATA PGTO", "PLANO", "SITUAÇÃO"}

func row(client, invoice, payment, plan, status string) core.RawRow {
	return core.RawRow{
		"NOME DO CLIENTE": client,
		"DATA NF":         invoice,
		"DATA PGTO":       payment,
		"PLANO":           plan,
		"SITUAÇÃO":        status,
	}
}

func sampleTable() core.Table {
	return core.Table{
		Header: header,
		Rows: []core.RawRow{
			row("Ana", "01/06/2024", "", "Unimed", "A PAGAR"),
			row("Ana", "15/06/2024", "", "Unimed", "Parcial"),
			row("Ana", "10/06/2024", "20/06/2024", "Unimed", "Pago"),
			row("Bia", "02/06/2024", "", "Amil", "A PAGAR"),
			row("Bia", "", "05/06/2024", "Amil", ""),
			row("Caio", "31/05/2024", "03/06/2024", "Bradesco", "Pago"),
			row("Duda", "xx/06/2024", "", "SulAmérica", "A PAGAR"),
			row("", "03/06/2024", "", "Amil", "A PAGAR"),
		},
	}
}

func newTestPipeline(t *testing.T, policy core.StatusPolicy) *Pipeline {
	t.Helper()
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil)})
	p, err := NewPipeline(nil, policy, logger)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestPipelineExplicit(t *testing.T) {
	p := newTestPipeline(t, core.StatusExplicit)
	report, err := p.Run(sampleTable(), june2024)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []core.ReportRow{
		{Client: "Bia", Plan: "Amil", InvoiceDate: "02/06/2024", PaymentDate: "05/06/2024", Status: "A PAGAR"},
		{Client: "Ana", Plan: "Unimed", InvoiceDate: "15/06/2024", PaymentDate: "20/06/2024", Status: "Parcial"},
	}
	if !reflect.DeepEqual(report.Rows, want) {
		t.Fatalf("unexpected rows:\n got %+v\nwant %+v", report.Rows, want)
	}
	if report.InputRows != 8 || report.Dropped != 1 {
		t.Fatalf("unexpected counters: %+v", report)
	}
	// Ana x3 and Bia x1 have June invoices; Caio's is May, Duda's unparseable.
	if report.InvoicesInMonth != 4 || report.PaymentsInMonth != 3 {
		t.Fatalf("unexpected month counts: invoices=%d payments=%d", report.InvoicesInMonth, report.PaymentsInMonth)
	}
	if report.Paid() != 2 {
		t.Fatalf("expected 2 paid rows, got %d", report.Paid())
	}
}

func TestPipelinePresence(t *testing.T) {
	table := core.Table{
		Header: header[:4],
		Rows: []core.RawRow{
			row("A", "01/06/2024", "", "Unimed", ""),
			row("B", "02/06/2024", "", "Amil", ""),
			row("B", "", "05/06/2024", "Amil", ""),
		},
	}
	p := newTestPipeline(t, core.StatusPresence)
	report, err := p.Run(table, june2024)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", report.Rows)
	}
	byClient := map[string]core.ReportRow{}
	for _, r := range report.Rows {
		byClient[r.Client] = r
	}
	if a := byClient["A"]; a.PaymentPresent == nil || *a.PaymentPresent || a.PaymentDate != "" {
		t.Fatalf("A should be unpaid: %+v", a)
	}
	if b := byClient["B"]; b.PaymentPresent == nil || !*b.PaymentPresent || b.PaymentDate != "05/06/2024" {
		t.Fatalf("B should be paid on 05/06/2024: %+v", b)
	}
}

func TestPipelineIdempotent(t *testing.T) {
	p := newTestPipeline(t, core.StatusPresence)
	first, err := p.Run(sampleTable(), june2024)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := p.Run(sampleTable(), june2024)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("runs differ:\n%+v\n%+v", first, second)
	}
}

func TestPipelineCardinality(t *testing.T) {
	table := sampleTable()
	p := newTestPipeline(t, core.StatusExplicit)
	n := NewNormalizer(nil)
	records, _ := n.Normalize(table)
	latest := LatestPerClient(FilterMonth(records, InvoiceDate, june2024), InvoiceDate)

	report, err := p.Run(table, june2024)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Rows) != len(latest) {
		t.Fatalf("output rows %d != latest invoices %d", len(report.Rows), len(latest))
	}
}

func TestPipelineNullInvoiceDateExcluded(t *testing.T) {
	table := core.Table{
		Header: header,
		Rows: []core.RawRow{
			row("Duda", "garbage", "10/06/2024", "Amil", "Pago"),
		},
	}
	p := newTestPipeline(t, core.StatusExplicit)
	report, err := p.Run(table, june2024)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Rows) != 0 {
		t.Fatalf("unparseable invoice date must not produce a row: %+v", report.Rows)
	}
	if report.PaymentsInMonth != 1 {
		t.Fatalf("the payment itself still counts, got %d", report.PaymentsInMonth)
	}
}

func TestPipelineEmptyMonth(t *testing.T) {
	p := newTestPipeline(t, core.StatusExplicit)
	july := core.Month{Year: 2024, Month: june2024.Month + 1}
	report, err := p.Run(sampleTable(), july)
	if err != nil {
		t.Fatalf("empty month should not fail: %v", err)
	}
	if len(report.Rows) != 0 {
		t.Fatalf("expected empty report, got %+v", report.Rows)
	}
}

func TestPipelineMissingColumn(t *testing.T) {
	p := newTestPipeline(t, core.StatusExplicit)
	table := sampleTable()
	table.Header = header[:4]
	if _, err := p.Run(table, june2024); !errors.Is(err, core.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestPipelineWithPolicy(t *testing.T) {
	p := newTestPipeline(t, core.StatusExplicit)
	q, err := p.WithPolicy(core.StatusPresence)
	if err != nil {
		t.Fatalf("with policy: %v", err)
	}
	if p.Policy() != core.StatusExplicit || q.Policy() != core.StatusPresence {
		t.Fatalf("WithPolicy must not modify the receiver")
	}
	if _, err := p.WithPolicy("bogus"); !errors.Is(err, core.ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
	if _, err := NewPipeline(nil, "", nil); !errors.Is(err, core.ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
}
