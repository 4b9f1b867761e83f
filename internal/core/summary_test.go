package core

import (
	"encoding/json"
	"testing"
)

func TestReportRowJSON(t *testing.T) {
	paid := true
	tests := []struct {
		name string
		row  ReportRow
		want string
	}{
		{
			name: "explicit with blank status keeps the key",
			row:  ReportRow{Client: "Ana", Plan: "Unimed", InvoiceDate: "05/06/2024"},
			want: `{"client":"Ana","plan":"Unimed","invoice_date":"05/06/2024","payment_date":"","status":""}`,
		},
		{
			name: "explicit",
			row:  ReportRow{Client: "Ana", InvoiceDate: "05/06/2024", PaymentDate: "07/06/2024", Status: "Pago"},
			want: `{"client":"Ana","plan":"","invoice_date":"05/06/2024","payment_date":"07/06/2024","status":"Pago"}`,
		},
		{
			name: "presence",
			row:  ReportRow{Client: "Bia", InvoiceDate: "01/06/2024", PaymentDate: "02/06/2024", PaymentPresent: &paid},
			want: `{"client":"Bia","plan":"","invoice_date":"01/06/2024","payment_date":"02/06/2024","payment_present":true}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.row)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}
