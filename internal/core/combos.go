package core

import (
	"context"
	"sort"
)

// ctxCheckInterval is how many search nodes are visited between context polls.
const ctxCheckInterval = 1024

// FindCombinations returns every subset of entries whose cents sum exactly to
// target, stopping once maxCount combinations have been found.
//
// The target must be nonzero and maxCount at least 1; the caller validates both.
// A zero target yields an empty result and maxCount below 1 is treated as 1.
//
// Combinations are reported in discovery order of a depth-first search over
// the candidates sorted by ascending (sign-normalized) cents. Truncated is set
// only when more than maxCount combinations exist.
func FindCombinations(entries []Entry, target int64, maxCount int) SearchResult {
	res, _ := FindCombinationsContext(context.Background(), entries, target, maxCount)
	return res
}

// FindCombinationsContext is FindCombinations with a cancellation point at each
// result-cap check. When ctx ends first, the combinations found so far are
// returned together with ctx.Err().
func FindCombinationsContext(ctx context.Context, entries []Entry, target int64, maxCount int) (SearchResult, error) {
	if maxCount < 1 {
		maxCount = 1
	}
	if target == 0 {
		return SearchResult{Combinations: []Combination{}}, nil
	}

	s := newSearch(ctx, entries, target, maxCount)
	s.dfs(0, s.target)

	found := s.results
	truncated := len(found) > maxCount
	if truncated {
		found = found[:maxCount]
	}
	return SearchResult{Combinations: found, Truncated: truncated}, s.err
}

type candidate struct {
	entry Entry // caller's entry, original sign
	cents int64 // normalized so the target is positive
}

type search struct {
	ctx     context.Context
	cands   []candidate
	target  int64 // normalized, > 0
	signed  int64 // as requested
	limit   int   // maxCount+1 so truncation is exact
	current []int
	results []Combination
	visited int
	err     error
}

func newSearch(ctx context.Context, entries []Entry, target int64, maxCount int) *search {
	sign := int64(1)
	if target < 0 {
		sign = -1
	}
	normTarget := target * sign

	cands := make([]candidate, 0, len(entries))
	for _, e := range entries {
		c := e.Cents * sign
		// Only positive amounts no larger than the target can be part of a subset.
		if c <= 0 || c > normTarget {
			continue
		}
		cands = append(cands, candidate{entry: e, cents: c})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].cents < cands[j].cents })

	return &search{
		ctx:     ctx,
		cands:   cands,
		target:  normTarget,
		signed:  target,
		limit:   maxCount + 1,
		current: make([]int, 0, len(cands)),
		results: []Combination{},
	}
}

// done reports whether the search must unwind.
func (s *search) done() bool {
	if len(s.results) >= s.limit || s.err != nil {
		return true
	}
	s.visited++
	if s.visited%ctxCheckInterval == 0 {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return true
		}
	}
	return false
}

// dfs extends the current selection with candidates at or after start.
// remaining is the target minus the selection's sum.
func (s *search) dfs(start int, remaining int64) {
	if s.done() {
		return
	}
	if remaining == 0 {
		s.record()
		return
	}
	for i := start; i < len(s.cands); i++ {
		// Candidates are sorted, so nothing after an overshoot fits either.
		if s.cands[i].cents > remaining {
			return
		}
		s.current = append(s.current, i)
		s.dfs(i+1, remaining-s.cands[i].cents)
		s.current = s.current[:len(s.current)-1]
		if s.done() {
			return
		}
	}
}

func (s *search) record() {
	items := make([]Entry, len(s.current))
	for k, pos := range s.current {
		items[k] = s.cands[pos].entry
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Index < items[j].Index })
	s.results = append(s.results, Combination{Items: items, Sum: s.signed})
}
