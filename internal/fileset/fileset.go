// Package fileset implements a lazily paged, sparse cache of the files that
// match one filter set. Indices are absolute positions in the query result.
package fileset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/metrics"
)

// ErrFetchFailed wraps any failure of the query service while loading a range.
var ErrFetchFailed = errors.New("file range fetch failed")

// DefaultTotalCount is reported by TotalCount before the first response.
const DefaultTotalCount = 1000

// Fetcher retrieves one window of files from the query service.
type Fetcher interface {
	FetchFiles(ctx context.Context, q api.FileQuery) (*api.FilePage, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, q api.FileQuery) (*api.FilePage, error)

func (f FetcherFunc) FetchFiles(ctx context.Context, q api.FileQuery) (*api.FilePage, error) {
	return f(ctx, q)
}

// GuardFunc reports whether a response for s may still be merged.
type GuardFunc func(s *FileSet) bool

// Option configures a FileSet.
type Option func(*FileSet)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *FileSet) { s.logger = l }
}

// WithGuard installs a staleness check consulted before a response is merged.
func WithGuard(g GuardFunc) Option {
	return func(s *FileSet) { s.guard = g }
}

// WithDefaultTotal overrides DefaultTotalCount for this set.
func WithDefaultTotal(n int) Option {
	return func(s *FileSet) { s.defaultTotal = n }
}

// call is one in-flight fetch of the inclusive window [start, stop].
type call struct {
	start, stop int
	done        chan struct{}
	err         error
}

func (c *call) overlaps(start, stop int) bool {
	return c.start <= stop && start <= c.stop
}

// FileSet caches the files matching a filter set. The same index never
// maps to two different records while the set is live; a failed fetch
// leaves its indices unloaded so a later call can retry.
type FileSet struct {
	filters      []api.Filter
	key          string
	fetcher      Fetcher
	logger       *zap.Logger
	guard        GuardFunc
	defaultTotal int

	mu       sync.Mutex
	files    map[int]api.FileRecord
	loaded   *roaring.Bitmap
	inflight []*call
	total    int
	hasTotal bool
	retired  bool
}

// New creates an empty FileSet for filters, fetching through f.
func New(filters []api.Filter, f Fetcher, opts ...Option) *FileSet {
	cp := make([]api.Filter, len(filters))
	copy(cp, filters)
	s := &FileSet{
		filters:      cp,
		key:          api.FiltersKey(cp),
		fetcher:      f,
		logger:       zap.NewNop(),
		defaultTotal: DefaultTotalCount,
		files:        make(map[int]api.FileRecord),
		loaded:       roaring.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Filters returns a copy of the set's filters.
func (s *FileSet) Filters() []api.Filter {
	out := make([]api.Filter, len(s.filters))
	copy(out, s.filters)
	return out
}

// Key is the canonical, order-insensitive identity of the filter set.
func (s *FileSet) Key() string { return s.key }

// Equals reports whether o describes the same filter set.
func (s *FileSet) Equals(o *FileSet) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.key == o.key
}

// TotalCount is the server-reported total, or the default before the first
// response arrives.
func (s *FileSet) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasTotal {
		return s.defaultTotal
	}
	return s.total
}

// TotalKnown reports whether a response has supplied the real total.
func (s *FileSet) TotalKnown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasTotal
}

// Get returns the cached record at index.
func (s *FileSet) Get(index int) (api.FileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.files[index]
	return rec, ok
}

// Loaded returns the number of cached records.
func (s *FileSet) Loaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.loaded.GetCardinality())
}

// IsRangeLoaded reports whether every index in [start, stop] is cached.
func (s *FileSet) IsRangeLoaded(start, stop int) bool {
	if start < 0 || stop < start {
		return false
	}
	want := span(start, stop)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded.AndCardinality(want) == want.GetCardinality()
}

// IsRangePending reports whether any index in [start, stop] is being fetched.
func (s *FileSet) IsRangePending(start, stop int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.inflight {
		if c.overlaps(start, stop) {
			return true
		}
	}
	return false
}

// Retire marks the set as superseded. Responses arriving afterwards are
// discarded and no new fetches are issued.
func (s *FileSet) Retire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retired = true
}

// Retired reports whether Retire has been called.
func (s *FileSet) Retired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retired
}

// FetchRange ensures [start, stop] is loaded. Every run of indices that is
// neither cached nor in flight gets its own request; fetches already in
// flight for the rest of the range are awaited rather than re-issued.
func (s *FileSet) FetchRange(ctx context.Context, start, stop int) error {
	if start < 0 {
		start = 0
	}
	if stop < start {
		return nil
	}

	s.mu.Lock()
	if s.retired {
		s.mu.Unlock()
		return nil
	}
	if s.hasTotal && stop >= s.total {
		stop = s.total - 1
		if stop < start {
			s.mu.Unlock()
			return nil
		}
	}
	waits := s.overlapping(start, stop)
	var calls []*call
	for _, r := range s.missingRuns(start, stop) {
		c := &call{start: r[0], stop: r[1], done: make(chan struct{})}
		s.inflight = append(s.inflight, c)
		calls = append(calls, c)
	}
	filters := s.filters
	s.mu.Unlock()

	if len(waits) > 0 {
		metrics.RecordDeduplicated()
	}

	var g errgroup.Group
	for _, c := range calls {
		g.Go(func() error { return s.fetch(ctx, c, filters) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return wait(ctx, waits)
}

// fetch issues the request for c and merges the response.
func (s *FileSet) fetch(ctx context.Context, c *call, filters []api.Filter) error {
	began := time.Now()
	page, err := s.fetcher.FetchFiles(ctx, api.FileQuery{
		Filters: filters,
		Offset:  c.start,
		Limit:   c.stop - c.start + 1,
	})
	metrics.RecordRangeFetch(time.Since(began), err)

	current := err != nil || s.guard == nil || s.guard(s)

	s.mu.Lock()
	s.removeCall(c)
	switch {
	case err != nil:
		c.err = fmt.Errorf("%w [%d, %d]: %w", ErrFetchFailed, c.start, c.stop, err)
		s.logger.Warn("range fetch failed",
			zap.String("filters", s.key),
			zap.Int("start", c.start),
			zap.Int("stop", c.stop),
			zap.Error(err))
	case s.retired || !current:
		metrics.RecordStaleDiscard()
		s.logger.Debug("discarding stale response",
			zap.String("filters", s.key),
			zap.Int("start", c.start),
			zap.Int("stop", c.stop))
	default:
		s.merge(page)
	}
	s.mu.Unlock()
	close(c.done)
	return c.err
}

// missingRuns splits the indices of [start, stop] that are neither loaded nor
// covered by an in-flight call into contiguous inclusive runs.
func (s *FileSet) missingRuns(start, stop int) [][2]int {
	need := span(start, stop)
	need.AndNot(s.loaded)
	for _, c := range s.inflight {
		need.RemoveRange(uint64(c.start), uint64(c.stop)+1)
	}
	var runs [][2]int
	it := need.Iterator()
	for it.HasNext() {
		i := int(it.Next())
		if n := len(runs); n > 0 && runs[n-1][1] == i-1 {
			runs[n-1][1] = i
			continue
		}
		runs = append(runs, [2]int{i, i})
	}
	return runs
}

func (s *FileSet) overlapping(start, stop int) []*call {
	var out []*call
	for _, c := range s.inflight {
		if c.overlaps(start, stop) {
			out = append(out, c)
		}
	}
	return out
}

func (s *FileSet) removeCall(c *call) {
	for i, x := range s.inflight {
		if x == c {
			s.inflight = append(s.inflight[:i], s.inflight[i+1:]...)
			return
		}
	}
}

// merge stores page records by absolute index. Must hold s.mu.
func (s *FileSet) merge(page *api.FilePage) {
	if page == nil {
		return
	}
	if s.hasTotal && page.TotalCount < s.total && !s.loaded.IsEmpty() {
		// the result shrank; drop indices that no longer exist
		beyond := roaring.New()
		beyond.AddRange(uint64(page.TotalCount), uint64(s.loaded.Maximum())+1)
		beyond.And(s.loaded)
		it := beyond.Iterator()
		for it.HasNext() {
			delete(s.files, int(it.Next()))
		}
		s.loaded.AndNot(beyond)
	}
	s.total = page.TotalCount
	s.hasTotal = true
	for i, rec := range page.Data {
		idx := page.Offset + i
		if idx < 0 || idx >= s.total {
			continue
		}
		s.files[idx] = rec
		s.loaded.Add(uint32(idx))
	}
}

func wait(ctx context.Context, calls []*call) error {
	for _, c := range calls {
		select {
		case <-c.done:
			if c.err != nil {
				return c.err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func span(start, stop int) *roaring.Bitmap {
	b := roaring.New()
	b.AddRange(uint64(start), uint64(stop)+1)
	return b
}
