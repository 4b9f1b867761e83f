package core

import "encoding/json"

// ReportRow is the display-ready row handed to presenters. Exactly one of
// Status or PaymentPresent is set, depending on the run's policy.
type ReportRow struct {
	Client         string `json:"client"`
	Plan           string `json:"plan"`
	InvoiceDate    string `json:"invoice_date"`
	PaymentDate    string `json:"payment_date"`
	Status         string `json:"status"`
	PaymentPresent *bool  `json:"payment_present"`
}

type reportRowBase struct {
	Client      string `json:"client"`
	Plan        string `json:"plan"`
	InvoiceDate string `json:"invoice_date"`
	PaymentDate string `json:"payment_date"`
}

// MarshalJSON emits payment_present for presence rows and status, blank
// included, for every other row.
func (r ReportRow) MarshalJSON() ([]byte, error) {
	base := reportRowBase{
		Client:      r.Client,
		Plan:        r.Plan,
		InvoiceDate: r.InvoiceDate,
		PaymentDate: r.PaymentDate,
	}
	if r.PaymentPresent != nil {
		return json.Marshal(struct {
			reportRowBase
			PaymentPresent bool `json:"payment_present"`
		}{base, *r.PaymentPresent})
	}
	return json.Marshal(struct {
		reportRowBase
		Status string `json:"status"`
	}{base, r.Status})
}

// Report is the result of one reconciliation run.
type Report struct {
	Month  Month        `json:"-"`
	Policy StatusPolicy `json:"policy"`
	Rows   []ReportRow  `json:"rows"`

	InputRows       int `json:"input_rows"`
	Dropped         int `json:"dropped"`
	InvoicesInMonth int `json:"invoices_in_month"`
	PaymentsInMonth int `json:"payments_in_month"`
}

// Paid counts rows with a matched payment.
func (r Report) Paid() int {
	n := 0
	for _, row := range r.Rows {
		if row.PaymentDate != "" {
			n++
		}
	}
	return n
}
