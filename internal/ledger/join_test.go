package ledger

import (
	"testing"

	"demonstrativo/internal/core"
)

func TestReconcileJoinCompleteness(t *testing.T) {
	invoices := []core.Record{
		{Client: "A", InvoiceDate: core.NewDate(2024, 6, 1), PaymentDate: core.NewDate(2024, 4, 2)},
		{Client: "B", InvoiceDate: core.NewDate(2024, 6, 2)},
	}
	payments := []core.Record{
		{Client: "B", PaymentDate: core.NewDate(2024, 6, 5)},
	}
	rows := Reconcile(invoices, payments)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Invoice.Client != "A" || rows[0].PaymentDate.Valid {
		t.Fatalf("A should have no payment, got %+v", rows[0])
	}
	if rows[0].Invoice.PaymentDate.Valid {
		t.Fatalf("invoice's own payment date must not leak into the row")
	}
	if rows[1].Invoice.Client != "B" || rows[1].PaymentDate != core.NewDate(2024, 6, 5) {
		t.Fatalf("B should carry 2024-06-05, got %+v", rows[1])
	}
}

func TestReconcileEmptyPayments(t *testing.T) {
	invoices := []core.Record{{Client: "A", InvoiceDate: core.NewDate(2024, 6, 1)}}
	rows := Reconcile(invoices, nil)
	if len(rows) != 1 || rows[0].PaymentDate.Valid {
		t.Fatalf("expected one unmatched row, got %+v", rows)
	}
}

func TestReconcileExactKey(t *testing.T) {
	invoices := []core.Record{{Client: "Ana Souza", InvoiceDate: core.NewDate(2024, 6, 1)}}
	payments := []core.Record{{Client: "ANA SOUZA", PaymentDate: core.NewDate(2024, 6, 3)}}
	rows := Reconcile(invoices, payments)
	if rows[0].PaymentDate.Valid {
		t.Fatalf("client keys must match exactly")
	}
}

func TestDerivePolicies(t *testing.T) {
	rows := []core.Row{
		{Invoice: core.Record{Client: "A", Plan: "Unimed", Status: "A PAGAR", InvoiceDate: core.NewDate(2024, 6, 1)}},
		{Invoice: core.Record{Client: "B", Plan: "Amil", Status: "Pago", InvoiceDate: core.NewDate(2024, 6, 2)}, PaymentDate: core.NewDate(2024, 6, 5)},
	}

	explicit, err := Derive(rows, core.StatusExplicit)
	if err != nil {
		t.Fatalf("derive explicit: %v", err)
	}
	if explicit[0].Status != "A PAGAR" || explicit[1].Status != "Pago" {
		t.Fatalf("status should pass through, got %+v", explicit)
	}
	if explicit[0].PaymentPresent != nil {
		t.Fatalf("explicit mode must not set payment_present")
	}
	if explicit[1].InvoiceDate != "02/06/2024" || explicit[1].PaymentDate != "05/06/2024" || explicit[0].PaymentDate != "" {
		t.Fatalf("unexpected date formatting: %+v", explicit)
	}

	presence, err := Derive(rows, core.StatusPresence)
	if err != nil {
		t.Fatalf("derive presence: %v", err)
	}
	if presence[0].PaymentPresent == nil || *presence[0].PaymentPresent {
		t.Fatalf("A should have payment_present=false, got %+v", presence[0])
	}
	if presence[1].PaymentPresent == nil || !*presence[1].PaymentPresent {
		t.Fatalf("B should have payment_present=true, got %+v", presence[1])
	}
	if presence[0].Status != "" || presence[1].Status != "" {
		t.Fatalf("presence mode must not synthesize a status string")
	}

	if _, err := Derive(rows, core.StatusPolicy("other")); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
