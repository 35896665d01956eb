package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"combos/internal/cache"
	"combos/internal/config"
	"combos/internal/core"
	applog "combos/internal/log"
)

var (
	// ErrTooManyEntries is returned when the pasted list exceeds the configured maximum.
	ErrTooManyEntries = errors.New("too many entries")
	// ErrSearchTimeout is returned when a search runs past its deadline.
	ErrSearchTimeout = errors.New("search timed out")
	// ErrNoSuchCombination is returned when an export names a combination outside the result.
	ErrNoSuchCombination = errors.New("no such combination")
)

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, core.ErrZeroTarget) ||
		errors.Is(err, core.ErrNoEntries) ||
		errors.Is(err, ErrTooManyEntries) ||
		errors.Is(err, ErrNoSuchCombination)
}

// UserMessage returns the sentence shown to people for err. Errors without a
// dedicated sentence fall back to err.Error().
func UserMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrZeroTarget):
		return "Enter a valid non-zero target amount."
	case errors.Is(err, core.ErrNoEntries):
		return "Paste and parse some entries first."
	}
	return err.Error()
}

// Options bounds what a single search may do.
type Options struct {
	DefaultMaxCount int
	MaxCountLimit   int
	MaxEntries      int
	Timeout         time.Duration
	CacheSize       int
	CacheTTL        time.Duration
}

// OptionsFromConfig maps the process configuration onto search options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DefaultMaxCount: cfg.DefaultMaxCombos,
		MaxCountLimit:   cfg.MaxCombosLimit,
		MaxEntries:      cfg.MaxEntries,
		Timeout:         cfg.SearchTimeout,
		CacheSize:       cfg.ResultCacheSize,
		CacheTTL:        cfg.ResultCacheTTL,
	}
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		DefaultMaxCount: core.DefaultMaxCount,
		MaxCountLimit:   5000,
		MaxEntries:      500,
		Timeout:         10 * time.Second,
		CacheSize:       256,
		CacheTTL:        10 * time.Minute,
	}
}

// SearchRequest carries raw user input. When Lines is non-nil it is used
// instead of Text.
type SearchRequest struct {
	Text     string   `json:"text"`
	Lines    []string `json:"lines,omitempty"`
	Target   string   `json:"target"`
	MaxCount string   `json:"max_count"`
}

// SearchResponse is the outcome of one search.
type SearchResponse struct {
	Entries     []core.Entry      `json:"entries"`
	TargetCents int64             `json:"target_cents"`
	MaxCount    int               `json:"max_count"`
	Result      core.SearchResult `json:"result"`
	Status      string            `json:"status"`
	Cached      bool              `json:"cached"`
	Duration    time.Duration     `json:"-"`
}

// SearchService validates user input and runs bounded combination searches.
// Results are cached and concurrent identical searches share one run; callers
// must treat returned slices as read-only.
type SearchService struct {
	opts   Options
	cache  *cache.LRUCache[core.SearchResult]
	group  singleflight.Group
	logger *applog.Logger
}

// NewSearchService creates a search service. A nil logger falls back to the default.
func NewSearchService(opts Options, logger *applog.Logger) *SearchService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if opts.DefaultMaxCount < 1 {
		opts.DefaultMaxCount = core.DefaultMaxCount
	}
	if opts.MaxCountLimit < 1 {
		opts.MaxCountLimit = opts.DefaultMaxCount
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	return &SearchService{
		opts:   opts,
		cache:  cache.NewLRUCache[core.SearchResult](opts.CacheSize, opts.CacheTTL),
		logger: logger.WithComponent(applog.ComponentSearch),
	}
}

// Cache exposes the result cache so it can be swept periodically.
func (s *SearchService) Cache() *cache.LRUCache[core.SearchResult] {
	return s.cache
}

// ParseEntries parses pasted text and enforces the entry limit.
func (s *SearchService) ParseEntries(text string) ([]core.Entry, error) {
	return s.checkEntries(core.ParseEntries(text))
}

func (s *SearchService) checkEntries(entries []core.Entry) ([]core.Entry, error) {
	if s.opts.MaxEntries > 0 && len(entries) > s.opts.MaxEntries {
		return nil, fmt.Errorf("%w: %d parsed, limit is %d", ErrTooManyEntries, len(entries), s.opts.MaxEntries)
	}
	return entries, nil
}

// MaxCount resolves the raw cap field. Blank input takes the configured
// default; the result never exceeds the configured limit.
func (s *SearchService) MaxCount(raw string) int {
	n := s.opts.DefaultMaxCount
	if strings.TrimSpace(raw) != "" {
		n = core.ClampMaxCount(raw)
	}
	if n > s.opts.MaxCountLimit {
		n = s.opts.MaxCountLimit
	}
	return n
}

// Validate applies Search's input checks without running a search. It is used
// before handing a request to a worker.
func (s *SearchService) Validate(req SearchRequest) error {
	_, _, err := s.prepare(req)
	return err
}

func (s *SearchService) prepare(req SearchRequest) ([]core.Entry, int64, error) {
	var entries []core.Entry
	if req.Lines != nil {
		entries = core.ParseLines(req.Lines)
	} else {
		entries = core.ParseEntries(req.Text)
	}
	entries, err := s.checkEntries(entries)
	if err != nil {
		return nil, 0, err
	}

	target, err := core.ParseAmount(req.Target)
	if err != nil || target == 0 {
		return nil, 0, core.ErrZeroTarget
	}
	if len(entries) == 0 {
		return nil, 0, core.ErrNoEntries
	}
	return entries, target, nil
}

// Search validates req and returns the combinations of its entries that sum
// to its target.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	start := time.Now()

	entries, target, err := s.prepare(req)
	if err != nil {
		return SearchResponse{}, err
	}

	resp := SearchResponse{
		Entries:     entries,
		TargetCents: target,
		MaxCount:    s.MaxCount(req.MaxCount),
	}

	key := resultKey(entries, target, resp.MaxCount)
	if res, ok := s.cache.Get(key); ok {
		resp.Result = res
		resp.Status = res.Summary()
		resp.Cached = true
		resp.Duration = time.Since(start)
		s.logger.DebugContext(ctx, "Search served from cache",
			applog.FieldTargetCents, target, applog.FieldCacheHit, true)
		return resp, nil
	}

	if err := ctx.Err(); err != nil {
		return SearchResponse{}, err
	}
	ch := s.group.DoChan(key, func() (any, error) {
		res, err := s.run(ctx, entries, target, resp.MaxCount)
		if err == nil {
			s.cache.Set(key, res)
		}
		return res, err
	})

	select {
	case <-ctx.Done():
		return SearchResponse{}, ctx.Err()
	case r := <-ch:
		resp.Result, _ = r.Val.(core.SearchResult)
		resp.Status = resp.Result.Summary()
		resp.Duration = time.Since(start)
		if r.Err != nil {
			return resp, r.Err
		}
		return resp, nil
	}
}

// run executes one search detached from the caller's cancellation so that
// callers sharing it through singleflight are not cut short by the first one
// leaving. The configured timeout still bounds it.
func (s *SearchService) run(ctx context.Context, entries []core.Entry, target int64, maxCount int) (core.SearchResult, error) {
	searchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
	defer cancel()

	start := time.Now()
	res, err := core.FindCombinationsContext(searchCtx, entries, target, maxCount)

	fields := applog.NewFields().
		WithOperation(applog.OpSearch).
		WithSearch(len(entries), target, maxCount).
		WithResult(len(res.Combinations), res.Truncated, time.Since(start).Milliseconds())

	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.WarnContext(ctx, "Search exceeded deadline", fields.WithError(err).ToSlice()...)
		return res, fmt.Errorf("%w after %v", ErrSearchTimeout, s.opts.Timeout)
	}
	if err != nil {
		return res, fmt.Errorf("find combinations: %w", err)
	}

	s.logger.InfoContext(ctx, "Search completed", fields.ToSlice()...)
	return res, nil
}

// Export runs req and returns the TSV export of combination n, counted from 1.
func (s *SearchService) Export(ctx context.Context, req SearchRequest, n int) (string, error) {
	resp, err := s.Search(ctx, req)
	if err != nil {
		return "", err
	}
	if n < 1 || n > len(resp.Result.Combinations) {
		return "", fmt.Errorf("%w: %d of %d", ErrNoSuchCombination, n, len(resp.Result.Combinations))
	}
	return core.ExportCombination(resp.Result.Combinations[n-1]), nil
}

func resultKey(entries []core.Entry, target int64, maxCount int) string {
	h := sha256.New()
	var buf [8]byte
	for _, e := range entries {
		binary.LittleEndian.PutUint64(buf[:], uint64(e.Cents))
		h.Write(buf[:])
		h.Write([]byte(e.Text))
		h.Write([]byte{0})
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(target))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(maxCount))
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}
