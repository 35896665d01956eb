package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ExportCombination renders a combination as tab-separated lines:
// an "index\tamount" header, one line per member sorted by index, and a
// trailing "sum" line. Amounts use FormatPlain.
func ExportCombination(c Combination) string {
	items := append([]Entry(nil), c.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].Index < items[j].Index })

	lines := make([]string, 0, len(items)+2)
	lines = append(lines, "index\tamount")
	for _, e := range items {
		lines = append(lines, strconv.Itoa(e.Index)+"\t"+FormatPlain(e.Cents))
	}
	lines = append(lines, "sum\t"+FormatPlain(c.Sum))
	return strings.Join(lines, "\n")
}

// Summary is the status line shown after a search.
func (r SearchResult) Summary() string {
	if len(r.Combinations) == 0 {
		return "No combinations found."
	}
	s := fmt.Sprintf("Found %d combination(s)", len(r.Combinations))
	if r.Truncated {
		s += " (truncated)"
	}
	return s + "."
}
