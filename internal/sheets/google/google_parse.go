package google

import (
	"fmt"
	"strings"

	"demonstrativo/internal/core"
	ports "demonstrativo/internal/sheets"
)

// parseValues converts a values matrix (as returned by Sheets API) into a
// Table. Cells are rendered and trimmed; the first row is the header.
func parseValues(values [][]interface{}) core.Table {
	matrix := make([][]string, len(values))
	for i, row := range values {
		matrix[i] = toStrings(row)
	}
	return ports.FromValues(matrix)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
