package ledger

import (
	"slices"

	"demonstrativo/internal/core"
)

// LatestPerClient keeps one record per client: the one with the greatest
// selected date. Records are stable-sorted ascending by that date first, so on
// an exact date tie the record that came later in the input wins.
//
// The result is ordered by date ascending, ties in input order.
func LatestPerClient(records []core.Record, field DateField) []core.Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b core.Record) int {
		return field.Of(a).Compare(field.Of(b))
	})

	last := make(map[string]int, len(sorted))
	for i, r := range sorted {
		last[r.Client] = i
	}

	out := make([]core.Record, 0, len(last))
	for i, r := range sorted {
		if last[r.Client] == i {
			out = append(out, r)
		}
	}
	return out
}
