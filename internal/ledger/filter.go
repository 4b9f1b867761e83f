package ledger

import "demonstrativo/internal/core"

// DateField selects which date of a record a step works on.
type DateField int

const (
	InvoiceDate DateField = iota
	PaymentDate
)

// Of returns the selected date of r.
func (f DateField) Of(r core.Record) core.Date {
	if f == PaymentDate {
		return r.PaymentDate
	}
	return r.InvoiceDate
}

func (f DateField) String() string {
	if f == PaymentDate {
		return "payment_date"
	}
	return "invoice_date"
}

// FilterMonth keeps the records whose selected date falls in ref, preserving
// input order. Records with a null date never match.
func FilterMonth(records []core.Record, field DateField, ref core.Month) []core.Record {
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if field.Of(r).In(ref) {
			out = append(out, r)
		}
	}
	return out
}
