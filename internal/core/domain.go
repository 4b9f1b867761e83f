package core

import (
	"errors"
	"fmt"
	"strings"
)

// Canonical field names produced by the normalizer.
const (
	FieldClient      = "Cliente"
	FieldInvoiceDate = "Data Nota"
	FieldPaymentDate = "Data Pagamento"
	FieldPlan        = "Plano de Saúde"
	FieldStatus      = "Situação"
)

const (
	// StatusExplicit carries the invoice's own status label through unchanged.
	StatusExplicit StatusPolicy = "explicit"
	// StatusPresence reports whether a payment matched in the reference month.
	StatusPresence StatusPolicy = "presence"
)

type (
	StatusPolicy string

	// RawRow is one source row keyed by source column name.
	RawRow map[string]any

	// Table is what a loader hands to the pipeline.
	Table struct {
		Header []string
		Rows   []RawRow
	}

	// Record is a normalized ledger row.
	Record struct {
		Seq         int // position in the source table
		Client      string
		InvoiceDate Date
		PaymentDate Date
		Plan        string
		Status      string
		Extra       map[string]any
	}

	// Row is a client's latest invoice joined with its latest payment, if any.
	Row struct {
		Invoice     Record
		PaymentDate Date
	}
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyClient   = errors.New("empty client")
	ErrInvalidPolicy = errors.New("invalid status policy")
	ErrInvalidMonth  = errors.New("invalid month")
)

// ParseStatusPolicy maps a config or query value to a policy.
func ParseStatusPolicy(s string) (StatusPolicy, error) {
	p := StatusPolicy(strings.ToLower(strings.TrimSpace(s)))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

func (p StatusPolicy) Validate() error {
	switch p {
	case StatusExplicit, StatusPresence:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidPolicy, string(p))
}

func (p StatusPolicy) String() string { return string(p) }

// Validate reports records that cannot take part in grouping.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Client) == "" {
		return ErrEmptyClient
	}
	return nil
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }
