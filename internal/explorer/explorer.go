// Package explorer drives a FileSetTree from application state. It rebuilds
// the tree when the hierarchy or filters change, owns collapse state, and
// turns visible-range notifications into debounced fetches.
package explorer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
	"github.com/agentic-research/fmsx/internal/fileset"
	"github.com/agentic-research/fmsx/internal/metrics"
	"github.com/agentic-research/fmsx/internal/state"
	"github.com/agentic-research/fmsx/internal/tree"
)

// RangeListener receives the index window a view currently shows for a node.
type RangeListener interface {
	VisibleRangeChanged(ctx context.Context, node, start, stop int) error
}

// Options configures an Explorer.
type Options struct {
	Debounce          time.Duration
	DefaultTotalCount int
	Layout            tree.Layout
	Logger            *zap.Logger
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
	return Options{
		Debounce:          fileset.DefaultDebounce,
		DefaultTotalCount: fileset.DefaultTotalCount,
		Layout:            tree.DefaultLayout(),
	}
}

// Explorer is the headless tree view.
type Explorer struct {
	store   *state.Store
	fetcher fileset.Fetcher
	opts    Options
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	mu        sync.RWMutex
	tree      *tree.Tree
	collapsed tree.CollapseState
	loaders   map[int]*fileset.Loader
	display   []*annotation.Annotation

	unsubscribe func()
}

// New builds the initial tree from the store's state and follows it.
func New(store *state.Store, fetcher fileset.Fetcher, opts Options) *Explorer {
	if opts.Debounce <= 0 {
		opts.Debounce = fileset.DefaultDebounce
	}
	if opts.DefaultTotalCount <= 0 {
		opts.DefaultTotalCount = fileset.DefaultTotalCount
	}
	if opts.Layout == (tree.Layout{}) {
		opts.Layout = tree.DefaultLayout()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Explorer{
		store:   store,
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	e.onState(store.State())
	e.unsubscribe = store.Subscribe(e.onState)
	return e
}

// Close stops following the store and abandons pending loads.
func (e *Explorer) Close() {
	e.unsubscribe()
	e.cancel()
}

func (e *Explorer) onState(s state.State) {
	h := s.Selection.AnnotationHierarchy
	filters := s.Selection.Filters

	e.mu.Lock()
	e.display = s.Selection.DisplayAnnotations
	if e.tree != nil && e.tree.Equivalent(h, filters) {
		e.mu.Unlock()
		return
	}
	old := e.tree
	e.tree = tree.Build(h, filters, e.newSet)
	e.collapsed = tree.CollapseState{}
	e.loaders = make(map[int]*fileset.Loader)
	n := e.tree.Len()
	e.mu.Unlock()

	if old != nil {
		old.Retire()
	}
	metrics.RecordTreeRebuild(n)
	e.logger.Debug("tree rebuilt",
		zap.Strings("hierarchy", h.Names()),
		zap.String("filters", api.FiltersKey(filters)),
		zap.Int("nodes", n))
}

func (e *Explorer) newSet(index int, filters []api.Filter) *fileset.FileSet {
	return fileset.New(filters, e.fetcher,
		fileset.WithLogger(e.logger),
		fileset.WithDefaultTotal(e.opts.DefaultTotalCount),
		fileset.WithGuard(func(s *fileset.FileSet) bool {
			return e.Tree().Current(index, s)
		}),
	)
}

// Tree returns the current tree.
func (e *Explorer) Tree() *tree.Tree {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree
}

// Node returns node index of the current tree.
func (e *Explorer) Node(index int) (tree.Node, bool) {
	return e.Tree().Get(index)
}

// Toggle flips the collapse state of index.
func (e *Explorer) Toggle(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.collapsed.Toggle(e.tree, index)
}

// IsCollapsed resolves the effective collapse state of index.
func (e *Explorer) IsCollapsed(index int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree.ResolveEffectiveCollapse(index, e.collapsed)
}

// ItemSize returns the height of node index in a container of the given height.
func (e *Explorer) ItemSize(index, containerHeight int) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opts.Layout.ItemSize(e.tree, e.collapsed, index, containerHeight)
}

// Visible lists the nodes that currently take up space.
func (e *Explorer) Visible() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree.Visible(e.collapsed)
}

// ItemCount is the number of rows to render for node: the known total, or
// the default before the first response.
func (e *Explorer) ItemCount(node int) int {
	n, ok := e.Node(node)
	if !ok {
		return 0
	}
	return n.FileSet.TotalCount()
}

// IsRangeLoaded reports whether rows [start, stop] of node are cached.
func (e *Explorer) IsRangeLoaded(node, start, stop int) bool {
	n, ok := e.Node(node)
	if !ok {
		return false
	}
	return n.FileSet.IsRangeLoaded(start, stop)
}

// VisibleRangeChanged implements RangeListener.
func (e *Explorer) VisibleRangeChanged(ctx context.Context, node, start, stop int) error {
	l, err := e.loader(node)
	if err != nil {
		return err
	}
	if l.Set().IsRangeLoaded(start, stop) {
		return nil
	}
	return l.Load(ctx, start, stop)
}

func (e *Explorer) loader(node int) (*fileset.Loader, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.loaders[node]; ok {
		return l, nil
	}
	n, ok := e.tree.Get(node)
	if !ok {
		return nil, fmt.Errorf("node %d out of range", node)
	}
	l := fileset.NewLoader(e.ctx, n.FileSet, e.opts.Debounce)
	e.loaders[node] = l
	return l, nil
}

// DisplayAnnotations returns the annotations rendered as row columns.
func (e *Explorer) DisplayAnnotations() []*annotation.Annotation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*annotation.Annotation(nil), e.display...)
}

// Rows renders rows [start, stop] of node, one string per index.
func (e *Explorer) Rows(node, start, stop int) []string {
	n, ok := e.Node(node)
	if !ok || stop < start {
		return nil
	}
	display := e.DisplayAnnotations()
	out := make([]string, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		rec, ok := n.FileSet.Get(i)
		out = append(out, RenderRow(display, rec, ok))
	}
	return out
}

// Record returns the cached record at row index of node.
func (e *Explorer) Record(node, index int) (api.FileRecord, bool) {
	n, ok := e.Node(node)
	if !ok {
		return nil, false
	}
	return n.FileSet.Get(index)
}
