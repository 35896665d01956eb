package core

import "errors"

// DefaultMaxCount is the combination cap used when the caller gives none.
const DefaultMaxCount = 500

type (
	// Entry is one parsed amount line. Index is assigned densely in input order.
	Entry struct {
		Index int    `json:"index"`
		Cents int64  `json:"cents"`
		Text  string `json:"text"`
	}

	// Combination is a set of entries whose cents add up to the target.
	// Items are ordered by ascending Index.
	Combination struct {
		Items []Entry `json:"items"`
		Sum   int64   `json:"sum"`
	}

	// SearchResult lists combinations in discovery order.
	SearchResult struct {
		Combinations []Combination `json:"combinations"`
		Truncated    bool          `json:"truncated"`
	}
)

var (
	ErrNotANumber = errors.New("not a number")
	ErrZeroTarget = errors.New("target must be a valid non-zero amount")
	ErrNoEntries  = errors.New("no entries to search")
)

// Indices returns the member indices of the combination.
func (c Combination) Indices() []int {
	out := make([]int, len(c.Items))
	for i, e := range c.Items {
		out[i] = e.Index
	}
	return out
}

// Total sums the members' cents.
func (c Combination) Total() int64 {
	var total int64
	for _, e := range c.Items {
		total += e.Cents
	}
	return total
}
