// Package http serves the reconciliation dashboard and its JSON API.
//
// This file parses and validates the query parameters shared by both views.
package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"demonstrativo/internal/core"
)

// Default page sizes per policy, matching the two original dashboards.
const (
	DefaultExplicitPageSize = 20
	DefaultPresencePageSize = 90
)

// ReportParams holds the validated query of a report request.
type ReportParams struct {
	Month  core.Month
	Policy core.StatusPolicy
	Page   int
}

// ParseReportParams reads year, month, policy and page. The reference month
// defaults to the one containing now; the policy defaults to def. A
// malformed year, month or policy is an error; a malformed page means page 1.
func ParseReportParams(query url.Values, now time.Time, def core.StatusPolicy) (ReportParams, error) {
	params := ReportParams{
		Month:  core.MonthOf(now),
		Policy: def,
		Page:   1,
	}

	yearStr := strings.TrimSpace(query.Get("year"))
	monthStr := strings.TrimSpace(query.Get("month"))
	if yearStr != "" || monthStr != "" {
		year, month := params.Month.Year, int(params.Month.Month)
		if yearStr != "" {
			y, err := strconv.Atoi(yearStr)
			if err != nil || y < 1 || y > 9999 {
				return ReportParams{}, fmt.Errorf("invalid year %q", yearStr)
			}
			year = y
		}
		if monthStr != "" {
			m, err := strconv.Atoi(monthStr)
			if err != nil {
				return ReportParams{}, fmt.Errorf("%w: %q", core.ErrInvalidMonth, monthStr)
			}
			month = m
		}
		ref, err := core.NewMonth(year, month)
		if err != nil {
			return ReportParams{}, fmt.Errorf("%w: %d", err, month)
		}
		params.Month = ref
	}

	if v := strings.TrimSpace(query.Get("policy")); v != "" {
		policy, err := core.ParseStatusPolicy(v)
		if err != nil {
			return ReportParams{}, err
		}
		params.Policy = policy
	}

	if v := strings.TrimSpace(query.Get("page")); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			params.Page = p
		}
	}

	return params, nil
}

// PageSizeFor returns configured when positive, else the policy's default.
func PageSizeFor(policy core.StatusPolicy, configured int) int {
	if configured > 0 {
		return configured
	}
	if policy == core.StatusPresence {
		return DefaultPresencePageSize
	}
	return DefaultExplicitPageSize
}

// Page is one window of report rows.
type Page struct {
	Number     int
	Size       int
	TotalRows  int
	TotalPages int
	Start, End int // row index range [Start, End)
}

// Paginate clamps page to the available range. An empty report has one
// empty page.
func Paginate(total, size, page int) Page {
	if size < 1 {
		size = 1
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := min(start+size, total)
	return Page{
		Number:     page,
		Size:       size,
		TotalRows:  total,
		TotalPages: pages,
		Start:      start,
		End:        end,
	}
}

// HasPrev reports whether a previous page exists
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a next page exists
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// Prev returns the previous page number
func (p Page) Prev() int { return p.Number - 1 }

// Next returns the next page number
func (p Page) Next() int { return p.Number + 1 }
