package ledger

import (
	"fmt"

	"demonstrativo/internal/core"
	applog "demonstrativo/internal/log"
)

// Pipeline runs the full reconciliation for one status policy.
type Pipeline struct {
	normalizer *Normalizer
	policy     core.StatusPolicy
	logger     *applog.Logger
}

// NewPipeline validates the policy and prepares the normalizer. A nil logger
// falls back to the default slog logger.
func NewPipeline(fields FieldMap, policy core.StatusPolicy, logger *applog.Logger) (*Pipeline, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = applog.Default(applog.ComponentLedger)
	}
	return &Pipeline{
		normalizer: NewNormalizer(fields),
		policy:     policy,
		logger:     logger.WithComponent(applog.ComponentLedger),
	}, nil
}

// Policy returns the status policy this pipeline derives.
func (p *Pipeline) Policy() core.StatusPolicy { return p.policy }

// WithPolicy returns a pipeline sharing the field map but deriving another
// status policy.
func (p *Pipeline) WithPolicy(policy core.StatusPolicy) (*Pipeline, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	cp := *p
	cp.policy = policy
	return &cp, nil
}

// Run reconciles t for the reference month ref. Both month filters use the
// same ref. A missing column fails before any row is touched; an empty month
// is an empty report, not an error.
func (p *Pipeline) Run(t core.Table, ref core.Month) (core.Report, error) {
	if err := p.normalizer.CheckColumns(t.Header, p.policy); err != nil {
		return core.Report{}, err
	}

	records, dropped := p.normalizer.Normalize(t)
	if dropped > 0 {
		p.logger.Debug("Dropped rows without client", applog.FieldDropped, dropped)
	}

	invoices := FilterMonth(records, InvoiceDate, ref)
	payments := FilterMonth(records, PaymentDate, ref)

	latestInvoices := LatestPerClient(invoices, InvoiceDate)
	latestPayments := LatestPerClient(payments, PaymentDate)

	rows, err := Derive(Reconcile(latestInvoices, latestPayments), p.policy)
	if err != nil {
		return core.Report{}, fmt.Errorf("derive status: %w", err)
	}

	report := core.Report{
		Month:           ref,
		Policy:          p.policy,
		Rows:            rows,
		InputRows:       t.Len(),
		Dropped:         dropped,
		InvoicesInMonth: len(invoices),
		PaymentsInMonth: len(payments),
	}
	p.logger.Debug("Ledger reconciled",
		applog.FieldYear, ref.Year,
		applog.FieldMonth, int(ref.Month),
		applog.FieldPolicy, p.policy.String(),
		applog.FieldInputRows, report.InputRows,
		applog.FieldOutputRows, len(rows))
	return report, nil
}
