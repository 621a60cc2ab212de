package explorer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
	"github.com/agentic-research/fmsx/internal/fileset"
	"github.com/agentic-research/fmsx/internal/ingest"
	"github.com/agentic-research/fmsx/internal/query"
	"github.com/agentic-research/fmsx/internal/state"
)

func fixture(t *testing.T) (*query.MemoryService, []*annotation.Annotation) {
	t.Helper()
	exp := &ingest.Export{
		Annotations: []api.AnnotationResponse{
			{Name: "file_name", DisplayName: "File name", Type: "Text"},
			{Name: "plate", DisplayName: "Plate", Type: "Text", Values: []any{"P1", "P2"}},
			{Name: "size", DisplayName: "Size", Type: "Number", Units: "MB", Values: []any{1200.0, 5.0}},
		},
		Files: []api.FileRecord{
			{"file_id": "a", "file_name": "a.czi", "plate": "P1", "size": 1200.0},
			{"file_id": "b", "file_name": "b.czi", "plate": "P2", "size": 5.0},
			{"file_id": "c", "file_name": "c.czi", "plate": "P1", "size": 5.0},
		},
	}
	svc, err := query.NewMemoryService(exp)
	require.NoError(t, err)
	anns, err := svc.FetchAnnotations(context.Background())
	require.NoError(t, err)
	return svc, anns
}

func newStore(anns []*annotation.Annotation, hierarchy ...string) *state.Store {
	s := state.Initial()
	s.Metadata.Annotations = anns
	s.Selection.DisplayAnnotations = []*annotation.Annotation{anns[0], anns[2]}
	h, _ := annotation.Resolve(anns, hierarchy)
	s.Selection.AnnotationHierarchy = h
	return state.NewStore(s)
}

func fastOptions() Options {
	opts := DefaultOptions()
	opts.Debounce = 5 * time.Millisecond
	return opts
}

func TestExplorer_FlatListRows(t *testing.T) {
	svc, anns := fixture(t)
	e := New(newStore(anns), svc, fastOptions())
	defer e.Close()

	require.Equal(t, 1, e.Tree().Len())
	assert.Equal(t, fileset.DefaultTotalCount, e.ItemCount(0))
	assert.Equal(t, []string{LoadingPlaceholder, LoadingPlaceholder}, e.Rows(0, 0, 1))

	require.NoError(t, e.VisibleRangeChanged(context.Background(), 0, 0, 9))
	assert.Equal(t, 3, e.ItemCount(0))
	assert.True(t, e.IsRangeLoaded(0, 0, 2))
	assert.Equal(t, []string{"a.czi | 1,200 MB", "b.czi | 5 MB"}, e.Rows(0, 0, 1))
}

func TestExplorer_GroupedTree(t *testing.T) {
	svc, anns := fixture(t)
	e := New(newStore(anns, "plate"), svc, fastOptions())
	defer e.Close()

	require.Equal(t, 3, e.Tree().Len())
	p1, _ := e.Node(1)
	assert.Equal(t, "Plate: P1", p1.Label())
	assert.True(t, e.IsCollapsed(1))
	assert.Equal(t, 35, e.ItemSize(1, 600))

	e.Toggle(1)
	assert.False(t, e.IsCollapsed(1))
	assert.Equal(t, 300, e.ItemSize(1, 600))

	require.NoError(t, e.VisibleRangeChanged(context.Background(), 1, 0, 9))
	assert.Equal(t, 2, e.ItemCount(1))
	rec, ok := e.Record(1, 1)
	require.True(t, ok)
	assert.Equal(t, "c", rec["file_id"])

	assert.Error(t, e.VisibleRangeChanged(context.Background(), 42, 0, 1))
}

func TestExplorer_RebuildsOnHierarchyChange(t *testing.T) {
	svc, anns := fixture(t)
	store := newStore(anns, "plate")
	e := New(store, svc, fastOptions())
	defer e.Close()

	before := e.Tree()
	e.Toggle(1)

	// same hierarchy: no rebuild
	store.Dispatch(context.Background(), state.SelectFile("a", false))
	assert.Same(t, before, e.Tree())
	assert.False(t, e.IsCollapsed(1))

	store.Dispatch(context.Background(), state.ReorderAnnotationHierarchy("size", 0))
	after := e.Tree()
	assert.NotSame(t, before, after)
	// size buckets [5, 1200) and >= 1200, each with two plates
	assert.Equal(t, 7, after.Len())
	assert.False(t, e.IsCollapsed(1))
	assert.True(t, e.IsCollapsed(2))

	old, _ := before.Get(1)
	assert.True(t, old.FileSet.Retired())
}

// gatedFetcher blocks every fetch until release is closed.
type gatedFetcher struct {
	inner   fileset.Fetcher
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (g *gatedFetcher) FetchFiles(ctx context.Context, q api.FileQuery) (*api.FilePage, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.inner.FetchFiles(ctx, q)
}

func TestExplorer_DiscardsStaleResponse(t *testing.T) {
	svc, anns := fixture(t)
	gate := &gatedFetcher{inner: svc, release: make(chan struct{}), started: make(chan struct{})}
	store := newStore(anns, "plate")
	e := New(store, gate, fastOptions())
	defer e.Close()

	stale, _ := e.Node(1)
	done := make(chan error, 1)
	go func() { done <- e.VisibleRangeChanged(context.Background(), 1, 0, 9) }()
	<-gate.started

	store.Dispatch(context.Background(), state.RemoveFromAnnotationHierarchy("plate"))
	close(gate.release)
	require.NoError(t, <-done)

	assert.Equal(t, 0, stale.FileSet.Loaded())
	assert.Equal(t, 1, e.Tree().Len())
}

func TestRenderRow(t *testing.T) {
	_, anns := fixture(t)
	assert.Equal(t, LoadingPlaceholder, RenderRow(anns, nil, false))
	rec := api.FileRecord{"file_name": "x.czi", "plate": "P9"}
	assert.Equal(t, "x.czi | P9 | ", RenderRow(anns, rec, true))
}

func TestExplorer_WriteOutline(t *testing.T) {
	svc, anns := fixture(t)
	e := New(newStore(anns, "plate"), svc, fastOptions())
	defer e.Close()

	require.NoError(t, e.VisibleRangeChanged(context.Background(), 1, 0, 9))

	var b strings.Builder
	require.NoError(t, e.WriteOutline(&b, 600))
	assert.Equal(t,
		"  0 [-] All files (? files) size=600\n"+
			"  1   [+] Plate: P1 (2 files) size=35\n"+
			"  2   [+] Plate: P2 (? files) size=35\n",
		b.String())
}
