package http

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"demonstrativo/internal/core"
	applog "demonstrativo/internal/log"
)

// Page titles of the two dashboards.
const (
	TitleExplicit = "Última Nota Emitida no Mês e Situação Real"
	TitlePresence = "Última Nota do Mês - Colorido por Presença de Pagamento"
)

// Status labels that carry a row colour in explicit mode. Matching is exact.
var statusClasses = map[string]string{
	"Pago":    "row-pago",
	"Parcial": "row-parcial",
	"A PAGAR": "row-a-pagar",
}

// rowClass returns the CSS class colouring a report row.
func rowClass(row core.ReportRow, policy core.StatusPolicy) string {
	if policy == core.StatusPresence {
		if row.PaymentPresent != nil && *row.PaymentPresent {
			return "row-paid"
		}
		return "row-unpaid"
	}
	return statusClasses[strings.TrimSpace(row.Status)]
}

func titleFor(policy core.StatusPolicy) string {
	if policy == core.StatusPresence {
		return TitlePresence
	}
	return TitleExplicit
}

type dashboardRow struct {
	core.ReportRow
	Class string
}

type dashboardView struct {
	Title      string
	Explicit   bool
	Policy     string
	Month      string // MM/YYYY
	Rows       []dashboardRow
	Page       Page
	PrevURL    string
	NextURL    string
	SwitchURL  string
	SwitchName string
	Paid       int
	Unpaid     int
	Dropped    int
	Error      string
	RequestID  string
}

func pageURL(params ReportParams, policy core.StatusPolicy, page int) string {
	q := url.Values{}
	q.Set("year", strconv.Itoa(params.Month.Year))
	q.Set("month", strconv.Itoa(int(params.Month.Month)))
	q.Set("policy", policy.String())
	q.Set("page", strconv.Itoa(page))
	return "/?" + q.Encode()
}

func otherPolicy(p core.StatusPolicy) core.StatusPolicy {
	if p == core.StatusPresence {
		return core.StatusExplicit
	}
	return core.StatusPresence
}

// buildDashboardView windows the report onto one page.
func buildDashboardView(report core.Report, params ReportParams, pageSize int) dashboardView {
	page := Paginate(len(report.Rows), PageSizeFor(report.Policy, pageSize), params.Page)

	view := dashboardView{
		Title:    titleFor(report.Policy),
		Explicit: report.Policy == core.StatusExplicit,
		Policy:   report.Policy.String(),
		Month:    fmt.Sprintf("%02d/%04d", int(report.Month.Month), report.Month.Year),
		Page:     page,
		Paid:     report.Paid(),
		Unpaid:   len(report.Rows) - report.Paid(),
		Dropped:  report.Dropped,
	}
	for _, row := range report.Rows[page.Start:page.End] {
		view.Rows = append(view.Rows, dashboardRow{ReportRow: row, Class: rowClass(row, report.Policy)})
	}
	if page.HasPrev() {
		view.PrevURL = pageURL(params, report.Policy, page.Prev())
	}
	if page.HasNext() {
		view.NextURL = pageURL(params, report.Policy, page.Next())
	}
	other := otherPolicy(report.Policy)
	view.SwitchURL = pageURL(params, other, 1)
	view.SwitchName = titleFor(other)
	return view
}

// handleDashboard renders the reconciliation table.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := applog.FromContext(ctx)

	if s.templates == nil {
		log.ErrorContext(ctx, "Templates not loaded", applog.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}

	params, err := ParseReportParams(r.URL.Query(), s.now(), s.pipeline.Policy())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var view dashboardView
	status := http.StatusOK
	report, err := s.getReport(ctx, params)
	if err != nil {
		s.access.LogError(ctx, "Dashboard report failed", err, applog.OpReconcile, errorType(err))
		status = statusFor(err)
		view = dashboardView{
			Title:     titleFor(params.Policy),
			Explicit:  params.Policy == core.StatusExplicit,
			Policy:    params.Policy.String(),
			Month:     fmt.Sprintf("%02d/%04d", int(params.Month.Month), params.Month.Year),
			Error:     err.Error(),
			RequestID: requestIDFrom(ctx),
		}
	} else {
		view = buildDashboardView(report, params, s.pageSize)
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", view); err != nil {
		log.ErrorContext(ctx, "Dashboard template execution failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRender)
		InternalServerError("render failed").Write(w)
		return
	}
	NewResponse().Status(status).BodyHTML(buf.String()).Write(w)
}
