package google

import (
	"testing"
)

// Matrix shaped like the DEMONSTRATIVO tab: ragged rows, blank lines, a
// trailing unnamed column.
func TestParseValues_Demonstrativo(t *testing.T) {
	values := [][]interface{}{
		{"NOME DO CLIENTE", "DATA NF", "DATA PGTO", "PLANO", "SITUAÇÃO", ""},
		{" Ana ", "01/06/2024", "", "Unimed", "A PAGAR"},
		{},
		{"", "", "", "", ""},
		{"Bia", "02/06/2024", "05/06/2024", "Amil", "Pago", "obs"},
		{"Caio", "03/06/2024"},
	}
	tbl := parseValues(values)
	if len(tbl.Header) != 6 || tbl.Header[5] != "F" {
		t.Fatalf("unexpected header: %v", tbl.Header)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 data rows, got %d", tbl.Len())
	}
	if got := tbl.Rows[0]["NOME DO CLIENTE"]; got != "Ana" {
		t.Fatalf("cells should be trimmed, got %q", got)
	}
	if got := tbl.Rows[1]["F"]; got != "obs" {
		t.Fatalf("unnamed column should be addressable by letter, got %q", got)
	}
	if got, ok := tbl.Rows[2]["SITUAÇÃO"]; !ok || got != "" {
		t.Fatalf("short rows should be padded with empty cells, got %q ok=%v", got, ok)
	}
}

func TestParseValues_NumbersRendered(t *testing.T) {
	values := [][]interface{}{
		{"NOME DO CLIENTE", "VALOR"},
		{"Ana", 120.5},
	}
	tbl := parseValues(values)
	if got := tbl.Rows[0]["VALOR"]; got != "120.5" {
		t.Fatalf("got %q", got)
	}
}

func TestParseValues_Empty(t *testing.T) {
	if tbl := parseValues(nil); tbl.Len() != 0 || len(tbl.Header) != 0 {
		t.Fatalf("expected empty table, got %+v", tbl)
	}
}

func TestQuoteSheet(t *testing.T) {
	cases := map[string]string{
		"DEMONSTRATIVO": "DEMONSTRATIVO",
		"Notas 2024":    "'Notas 2024'",
		"SITUAÇÃO":      "'SITUAÇÃO'",
		"Ana's":         "'Ana''s'",
	}
	for in, want := range cases {
		if got := quoteSheet(in); got != want {
			t.Fatalf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}
