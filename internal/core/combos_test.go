package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"strings"
	"testing"
)

func entriesOf(cents ...int64) []Entry {
	out := make([]Entry, len(cents))
	for i, c := range cents {
		out[i] = Entry{Index: i, Cents: c, Text: FormatPlain(c)}
	}
	return out
}

func centsOf(c Combination) []int64 {
	out := make([]int64, len(c.Items))
	for i, e := range c.Items {
		out[i] = e.Cents
	}
	return out
}

func TestFindCombinations_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		entries   []Entry
		target    int64
		maxCount  int
		want      [][]int64
		truncated bool
	}{
		{
			name:     "pair found before single",
			entries:  entriesOf(100, 200, 300),
			target:   300,
			maxCount: 500,
			want:     [][]int64{{100, 200}, {300}},
		},
		{
			name:     "negative target keeps original signs",
			entries:  entriesOf(-150),
			target:   -150,
			maxCount: 500,
			want:     [][]int64{{-150}},
		},
		{
			name:     "positive entry cannot reach negative target",
			entries:  entriesOf(150),
			target:   -150,
			maxCount: 500,
			want:     [][]int64{},
		},
		{
			name:     "no entries",
			entries:  nil,
			target:   500,
			maxCount: 500,
			want:     [][]int64{},
		},
		{
			name:     "unreachable target",
			entries:  entriesOf(100, 100, 100),
			target:   1000,
			maxCount: 500,
			want:     [][]int64{},
		},
		{
			name:     "everything filtered out",
			entries:  entriesOf(-5, 0, 700),
			target:   600,
			maxCount: 10,
			want:     [][]int64{},
		},
		{
			name:     "mixed signs ignore the opposite sign",
			entries:  entriesOf(50, -25, 25, 75),
			target:   100,
			maxCount: 10,
			want:     [][]int64{{25, 75}},
		},
		{
			name:     "duplicates produce distinct index sets",
			entries:  entriesOf(100, 100, 200),
			target:   200,
			maxCount: 10,
			want:     [][]int64{{100, 100}, {200}},
		},
		{
			name:      "cap of one over many subsets",
			entries:   entriesOf(50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50),
			target:    500,
			maxCount:  1,
			want:      [][]int64{{50, 50, 50, 50, 50, 50, 50, 50, 50, 50}},
			truncated: true,
		},
		{
			name:     "exactly the cap is not truncated",
			entries:  entriesOf(100, 200, 300),
			target:   300,
			maxCount: 2,
			want:     [][]int64{{100, 200}, {300}},
		},
		{
			name:      "one below the cap",
			entries:   entriesOf(100, 200, 300),
			target:    300,
			maxCount:  1,
			want:      [][]int64{{100, 200}},
			truncated: true,
		},
		{
			name:     "zero target is a no-op",
			entries:  entriesOf(0, 100),
			target:   0,
			maxCount: 10,
			want:     [][]int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FindCombinations(tt.entries, tt.target, tt.maxCount)
			got := make([][]int64, 0, len(res.Combinations))
			for _, c := range res.Combinations {
				got = append(got, centsOf(c))
				if c.Sum != tt.target {
					t.Errorf("combination sum = %d, want %d", c.Sum, tt.target)
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("combinations = %v, want %v", got, tt.want)
			}
			if res.Truncated != tt.truncated {
				t.Errorf("truncated = %v, want %v", res.Truncated, tt.truncated)
			}
		})
	}
}

func TestFindCombinations_ItemsSortedByIndex(t *testing.T) {
	// Sorted by value the search picks 100 (index 2) before 300 (index 0).
	entries := entriesOf(300, 500, 100)
	res := FindCombinations(entries, 400, 10)
	if len(res.Combinations) != 1 {
		t.Fatalf("expected 1 combination, got %d", len(res.Combinations))
	}
	if got := res.Combinations[0].Indices(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Fatalf("indices = %v, want [0 2]", got)
	}
}

func TestFindCombinations_DoesNotMutateInput(t *testing.T) {
	entries := entriesOf(-100, -200, 50)
	before := append([]Entry(nil), entries...)
	FindCombinations(entries, -300, 10)
	if !reflect.DeepEqual(entries, before) {
		t.Fatalf("entries mutated: %v", entries)
	}
}

func TestFindCombinations_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	entries := randomEntries(rng, 18, 1, 40)
	a := FindCombinations(entries, 120, 50)
	b := FindCombinations(entries, 120, 50)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical searches returned different results")
	}
}

func TestFindCombinations_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := rng.Intn(12)
		entries := randomEntries(rng, n, -30, 60)
		target := int64(rng.Intn(120) - 40)
		if target == 0 {
			target = 17
		}

		want := bruteForce(entries, target)
		all := FindCombinations(entries, target, 1<<20)
		if all.Truncated {
			t.Fatalf("round %d: uncapped search reported truncation", round)
		}
		got := indexSets(t, all, target)
		if !reflect.DeepEqual(sortedKeys(got), sortedKeys(want)) {
			t.Fatalf("round %d: entries=%v target=%d\n got %v\nwant %v", round, entries, target, sortedKeys(got), sortedKeys(want))
		}

		// A capped run returns a prefix of the uncapped discovery order.
		for _, limit := range []int{1, 2, 3, len(want)} {
			if limit < 1 {
				continue
			}
			capped := FindCombinations(entries, target, limit)
			if len(capped.Combinations) > limit {
				t.Fatalf("round %d: %d combinations exceed cap %d", round, len(capped.Combinations), limit)
			}
			if capped.Truncated != (len(want) > limit) {
				t.Fatalf("round %d: truncated=%v with %d total and cap %d", round, capped.Truncated, len(want), limit)
			}
			if !reflect.DeepEqual(capped.Combinations, all.Combinations[:len(capped.Combinations)]) {
				t.Fatalf("round %d: capped run is not a prefix of the full run", round)
			}
		}
	}
}

func TestFindCombinations_SignSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for round := 0; round < 50; round++ {
		entries := randomEntries(rng, 10, -50, 50)
		target := int64(rng.Intn(100) + 1)

		negated := make([]Entry, len(entries))
		for i, e := range entries {
			negated[i] = Entry{Index: e.Index, Cents: -e.Cents, Text: e.Text}
		}

		pos := FindCombinations(entries, target, 100)
		neg := FindCombinations(negated, -target, 100)
		if len(pos.Combinations) != len(neg.Combinations) || pos.Truncated != neg.Truncated {
			t.Fatalf("round %d: %d vs %d combinations", round, len(pos.Combinations), len(neg.Combinations))
		}
		for i := range pos.Combinations {
			if !reflect.DeepEqual(pos.Combinations[i].Indices(), neg.Combinations[i].Indices()) {
				t.Fatalf("round %d: combination %d differs", round, i)
			}
			if neg.Combinations[i].Sum != -target {
				t.Fatalf("round %d: sum %d, want %d", round, neg.Combinations[i].Sum, -target)
			}
		}
	}
}

func TestFindCombinationsContext_Cancelled(t *testing.T) {
	ones := make([]int64, 30)
	for i := range ones {
		ones[i] = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := FindCombinationsContext(ctx, entriesOf(ones...), 15, 1<<30)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Truncated {
		t.Fatal("cancelled search must not report truncation")
	}
	for _, c := range res.Combinations {
		if c.Total() != 15 {
			t.Fatalf("partial result has sum %d", c.Total())
		}
	}
}

func TestFindCombinationsContext_NoDeadline(t *testing.T) {
	res, err := FindCombinationsContext(context.Background(), entriesOf(100, 200, 300), 300, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Combinations) != 2 {
		t.Fatalf("expected 2 combinations, got %d", len(res.Combinations))
	}
}

func randomEntries(rng *rand.Rand, n int, lo, hi int) []Entry {
	cents := make([]int64, n)
	for i := range cents {
		cents[i] = int64(lo + rng.Intn(hi-lo+1))
	}
	return entriesOf(cents...)
}

// bruteForce enumerates every non-empty subset.
func bruteForce(entries []Entry, target int64) map[string]bool {
	out := map[string]bool{}
	n := len(entries)
	for mask := 1; mask < 1<<n; mask++ {
		var sum int64
		var idx []string
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				sum += entries[i].Cents
				idx = append(idx, fmt.Sprint(entries[i].Index))
			}
		}
		if sum != target {
			continue
		}
		// Only same-sign members can appear; the engine drops the rest.
		ok := true
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 && (entries[i].Cents == 0 || (entries[i].Cents > 0) != (target > 0)) {
				ok = false
				break
			}
		}
		if ok {
			out[strings.Join(idx, ",")] = true
		}
	}
	return out
}

func indexSets(t *testing.T, res SearchResult, target int64) map[string]bool {
	t.Helper()
	out := map[string]bool{}
	for _, c := range res.Combinations {
		if c.Total() != target {
			t.Fatalf("combination %v sums to %d, want %d", c.Indices(), c.Total(), target)
		}
		parts := make([]string, len(c.Items))
		for i, e := range c.Items {
			if i > 0 && c.Items[i-1].Index >= e.Index {
				t.Fatalf("items not strictly ordered by index: %v", c.Indices())
			}
			parts[i] = fmt.Sprint(e.Index)
		}
		key := strings.Join(parts, ",")
		if out[key] {
			t.Fatalf("duplicate combination %s", key)
		}
		out[key] = true
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
