package fileset

import (
	"context"
	"slices"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period a Loader waits before fetching.
const DefaultDebounce = 50 * time.Millisecond

// window is a pending inclusive range and the callers waiting on it.
type window struct {
	lo, hi  int
	waiters []chan error
}

// Loader coalesces bursts of range requests against one FileSet. Requests
// arriving within the debounce window that overlap or touch are merged into
// one range; each merged range is fetched once and its waiters receive the
// outcome of that fetch. Disjoint ranges are fetched separately.
type Loader struct {
	set  *FileSet
	wait time.Duration
	ctx  context.Context

	mu      sync.Mutex
	timer   *time.Timer
	pending []*window
}

// NewLoader returns a Loader for set. Fetches run under ctx, not under the
// context of whichever caller happened to arrive last.
func NewLoader(ctx context.Context, set *FileSet, wait time.Duration) *Loader {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	return &Loader{set: set, wait: wait, ctx: ctx}
}

// Set returns the FileSet the loader feeds.
func (l *Loader) Set() *FileSet { return l.set }

// Load requests [start, stop] and blocks until the fetch covering it
// completes or ctx is done.
func (l *Loader) Load(ctx context.Context, start, stop int) error {
	ch := make(chan error, 1)

	l.mu.Lock()
	l.pending = coalesce(append(l.pending, &window{lo: start, hi: stop, waiters: []chan error{ch}}))
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.wait, l.flush)
	l.mu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loader) flush() {
	l.mu.Lock()
	windows := l.pending
	l.pending = nil
	l.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range windows {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.set.FetchRange(l.ctx, w.lo, w.hi)
			for _, ch := range w.waiters {
				ch <- err
			}
		}()
	}
	wg.Wait()
}

// coalesce sorts windows by start and merges those that overlap or are
// adjacent.
func coalesce(ws []*window) []*window {
	slices.SortFunc(ws, func(a, b *window) int { return a.lo - b.lo })
	out := ws[:0]
	for _, w := range ws {
		if n := len(out); n > 0 && w.lo <= out[n-1].hi+1 {
			last := out[n-1]
			last.hi = max(last.hi, w.hi)
			last.waiters = append(last.waiters, w.waiters...)
			continue
		}
		out = append(out, w)
	}
	return out
}
