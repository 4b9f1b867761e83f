package ledger

import (
	"demonstrativo/internal/core"
)

// Derive turns reconciled rows into display rows under the given policy.
func Derive(rows []core.Row, policy core.StatusPolicy) ([]core.ReportRow, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	out := make([]core.ReportRow, 0, len(rows))
	for _, r := range rows {
		view := core.ReportRow{
			Client:      r.Invoice.Client,
			Plan:        r.Invoice.Plan,
			InvoiceDate: r.Invoice.InvoiceDate.Format(),
			PaymentDate: r.PaymentDate.Format(),
		}
		switch policy {
		case core.StatusExplicit:
			view.Status = r.Invoice.Status
		case core.StatusPresence:
			present := r.PaymentDate.Valid
			view.PaymentPresent = &present
		}
		out = append(out, view)
	}
	return out, nil
}
