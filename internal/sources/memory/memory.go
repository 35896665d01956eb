package memory

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"combos/internal/sources"
)

var _ sources.LinesReader = (*Store)(nil)

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// Store holds entry lines read once from a file or stdin.
type Store struct {
	lines []string
}

// NewFromReader reads every line of r.
func NewFromReader(r io.Reader) (*Store, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return &Store{lines: lines}, nil
}

// NewFromFile reads every line of the file at path.
func NewFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewFromReader(f)
}

// ReadLines returns a copy of the stored lines.
func (s *Store) ReadLines(_ context.Context) ([]string, error) {
	return append([]string(nil), s.lines...), nil
}
