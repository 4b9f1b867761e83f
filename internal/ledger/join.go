package ledger

import "demonstrativo/internal/core"

// Reconcile left-joins the latest invoices with the latest payments on exact
// client equality. Every invoice yields exactly one row; clients without a
// payment get the null date.
func Reconcile(invoices, payments []core.Record) []core.Row {
	paid := make(map[string]core.Date, len(payments))
	for _, p := range payments {
		paid[p.Client] = p.PaymentDate
	}

	rows := make([]core.Row, 0, len(invoices))
	for _, inv := range invoices {
		// The invoice's own payment column is superseded by the joined one.
		inv.PaymentDate = core.Date{}
		rows = append(rows, core.Row{Invoice: inv, PaymentDate: paid[inv.Client]})
	}
	return rows
}
