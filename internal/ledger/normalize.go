// Package ledger turns a raw invoice/payment table into the monthly
// reconciliation report: normalize, filter by month, keep the latest record
// per client, join invoices with payments and derive the display status.
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"demonstrativo/internal/core"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FieldMap renames source columns to canonical field names.
type FieldMap map[string]string

// DefaultFieldMap is the column layout of the DEMONSTRATIVO sheet.
var DefaultFieldMap = FieldMap{
	"NOME DO CLIENTE": core.FieldClient,
	"DATA NF":         core.FieldInvoiceDate,
	"DATA PGTO":       core.FieldPaymentDate,
	"PLANO":           core.FieldPlan,
	"SITUAÇÃO":        core.FieldStatus,
}

// Normalizer maps raw rows onto core.Record.
type Normalizer struct {
	fields FieldMap
	// folded source or canonical name -> canonical name
	byKey map[string]string
}

// NewNormalizer builds a normalizer for the given rename map. A nil map
// selects DefaultFieldMap.
func NewNormalizer(fields FieldMap) *Normalizer {
	if fields == nil {
		fields = DefaultFieldMap
	}
	n := &Normalizer{fields: fields, byKey: make(map[string]string, len(fields)*2)}
	for src, canonical := range fields {
		n.byKey[foldName(canonical)] = canonical
		n.byKey[foldName(src)] = canonical
	}
	return n
}

// required lists the canonical fields a policy needs.
func required(policy core.StatusPolicy) []string {
	fields := []string{core.FieldClient, core.FieldInvoiceDate, core.FieldPaymentDate, core.FieldPlan}
	if policy == core.StatusExplicit {
		fields = append(fields, core.FieldStatus)
	}
	return fields
}

// CheckColumns fails with core.ErrMissingColumn when the header lacks a column
// the policy depends on.
func (n *Normalizer) CheckColumns(header []string, policy core.StatusPolicy) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		if canonical, ok := n.byKey[foldName(h)]; ok {
			present[canonical] = true
		}
	}
	var missing []string
	for _, f := range required(policy) {
		if !present[f] {
			missing = append(missing, n.sourceName(f))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", core.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// sourceName returns the source column that feeds a canonical field.
func (n *Normalizer) sourceName(canonical string) string {
	for src, c := range n.fields {
		if c == canonical {
			return src
		}
	}
	return canonical
}

// Normalize converts every row of t. Rows without a client are dropped and
// counted.
func (n *Normalizer) Normalize(t core.Table) (records []core.Record, dropped int) {
	records = make([]core.Record, 0, len(t.Rows))
	for i, raw := range t.Rows {
		rec := n.normalizeRow(raw, orderedKeys(raw, t.Header), i)
		if err := rec.Validate(); err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped
}

// normalizeRow maps raw in key order. When two columns fold onto the same
// field the first one wins and the other is kept in Extra.
func (n *Normalizer) normalizeRow(raw core.RawRow, keys []string, seq int) core.Record {
	rec := core.Record{Seq: seq}
	seen := make(map[string]bool, len(required(core.StatusExplicit)))
	for _, key := range keys {
		v := raw[key]
		canonical, ok := n.byKey[foldName(key)]
		if !ok || seen[canonical] {
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}
			rec.Extra[key] = v
			continue
		}
		seen[canonical] = true
		switch canonical {
		case core.FieldClient:
			rec.Client = text(v)
		case core.FieldInvoiceDate:
			rec.InvoiceDate = ParseDate(v)
		case core.FieldPaymentDate:
			rec.PaymentDate = ParseDate(v)
		case core.FieldPlan:
			rec.Plan = text(v)
		case core.FieldStatus:
			rec.Status = text(v)
		}
	}
	return rec
}

// orderedKeys lists the keys of raw in header order, followed by any keys
// missing from the header in sorted order.
func orderedKeys(raw core.RawRow, header []string) []string {
	keys := make([]string, 0, len(raw))
	listed := make(map[string]bool, len(header))
	for _, h := range header {
		if _, ok := raw[h]; ok && !listed[h] {
			keys = append(keys, h)
			listed[h] = true
		}
	}
	var rest []string
	for k := range raw {
		if !listed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func text(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName makes header matching insensitive to case, accents and spacing.
func foldName(s string) string {
	out, _, err := transform.String(folder, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.Join(strings.Fields(out), " "))
}

// Day-first layouts; "2" and "1" accept one or two digits.
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2.1.06",
	"2006-1-2",
	"2006/1/2",
}

// ParseDate reads a day-first calendar date. It never fails: nil, empty or
// unparseable input yields the null date.
func ParseDate(v any) core.Date {
	switch d := v.(type) {
	case nil:
		return core.Date{}
	case core.Date:
		return d
	case time.Time:
		return core.DateOf(d)
	case *time.Time:
		if d == nil {
			return core.Date{}
		}
		return core.DateOf(*d)
	case string:
		return parseDateText(d)
	default:
		return parseDateText(fmt.Sprint(d))
	}
}

func parseDateText(s string) core.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}
	}
	// Drop a trailing time of day ("15/06/2024 10:30", "2024-06-15T10:30:00").
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t)
		}
	}
	return core.Date{}
}
