package google

import (
	"fmt"
	"strings"
)

// columnLines flattens a values matrix to one string per row using the first cell.
func columnLines(values [][]interface{}) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) == 0 || row[0] == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
	}
	return out
}
