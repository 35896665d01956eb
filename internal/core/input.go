package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseEntries splits pasted text into lines and parses each as an amount.
// Blank and unparseable lines are skipped; surviving entries are indexed
// densely from 0 in line order.
func ParseEntries(text string) []Entry {
	return ParseLines(strings.Split(text, "\n"))
}

// ParseLines is ParseEntries over lines already split by the caller, such as
// spreadsheet cells.
func ParseLines(lines []string) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		raw := strings.TrimSpace(line)
		if raw == "" {
			continue
		}
		cents, err := ParseAmount(raw)
		if err != nil {
			continue
		}
		out = append(out, Entry{Index: len(out), Cents: cents, Text: raw})
	}
	return out
}

// ClampMaxCount turns user input into a usable combination cap.
// Missing, zero or non-numeric input falls back to DefaultMaxCount, fractions
// are floored, and the result is never below 1.
func ClampMaxCount(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || f == 0 {
		return DefaultMaxCount
	}
	f = math.Floor(f)
	switch {
	case f < 1:
		return 1
	case f >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(f)
}
