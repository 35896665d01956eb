package sources

import "context"

// Ports for inbound entry sources. Each line read is one candidate amount;
// lines that do not parse are dropped later by the entry parser.
type (
	LinesReader interface {
		ReadLines(ctx context.Context) ([]string, error)
	}

	// RangeReader reads the lines of a caller-chosen range, such as "Sheet!B2:B".
	RangeReader interface {
		ReadRange(ctx context.Context, rng string) ([]string, error)
	}
)
