package http

import (
	"context"
	"net/http"
	"time"

	"demonstrativo/internal/core"
	applog "demonstrativo/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().BodyText("ok").Write(w)
}

// handleReady checks that the ledger source answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger == nil {
		NewResponse().BodyText("ready").Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := s.pinger.Ping(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		NewResponse().Status(http.StatusServiceUnavailable).BodyText("source unavailable").Write(w)
		return
	}
	NewResponse().BodyText("ready").Write(w)
}

// reportResponse is the /api/report body.
type reportResponse struct {
	Month string `json:"month"`
	Paid  int    `json:"paid"`
	core.Report
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params, err := ParseReportParams(r.URL.Query(), s.now(), s.pipeline.Policy())
	if err != nil {
		JSONError(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	report, err := s.getReport(ctx, params)
	if err != nil {
		s.access.LogError(ctx, "Report failed", err, applog.OpReconcile, errorType(err))
		JSONError(statusFor(err), err.Error()).Write(w)
		return
	}

	if report.Rows == nil {
		report.Rows = []core.ReportRow{}
	}
	NewResponse().
		Header("Cache-Control", "no-store").
		JSON(reportResponse{Month: report.Month.String(), Paid: report.Paid(), Report: report}).
		Write(w)
}
