package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/explorer"
	"github.com/agentic-research/fmsx/internal/tree"
)

const (
	// DefaultMaxFiles caps how many records one leaf directory lists.
	DefaultMaxFiles = 1000
	// DefaultFetchTimeout bounds the fetch behind a single directory listing.
	DefaultFetchTimeout = 30 * time.Second
	// FileSuffix is appended to every record file name.
	FileSuffix = ".json"
)

// ExplorerOption configures an ExplorerGraph.
type ExplorerOption func(*ExplorerGraph)

func WithMaxFiles(n int) ExplorerOption {
	return func(g *ExplorerGraph) {
		if n > 0 {
			g.maxFiles = n
		}
	}
}

func WithFetchTimeout(d time.Duration) ExplorerOption {
	return func(g *ExplorerGraph) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) ExplorerOption {
	return func(g *ExplorerGraph) { g.logger = l }
}

// ExplorerGraph projects an Explorer's tree as a directory hierarchy. Each
// non-root tree node is a directory named "<annotation>=<bucket>"; leaf
// directories (and the root of a flat tree) hold one JSON file per record.
// Records are fetched when a leaf directory is first listed or one of its
// files is looked up. A rebuilt tree replaces the whole projection.
type ExplorerGraph struct {
	ex       *explorer.Explorer
	maxFiles int
	timeout  time.Duration
	logger   *zap.Logger
	rendered *contentCache
	created  time.Time

	mu     sync.Mutex
	tree   *tree.Tree
	store  *MemoryStore
	dirs   map[string]int
	paths  []string
	listed map[int]bool
}

func NewExplorerGraph(ex *explorer.Explorer, opts ...ExplorerOption) *ExplorerGraph {
	g := &ExplorerGraph{
		ex:       ex,
		maxFiles: DefaultMaxFiles,
		timeout:  DefaultFetchTimeout,
		logger:   zap.NewNop(),
		rendered: newContentCache(4096),
		created:  time.Now(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// DirName is the directory name of a non-root tree node.
func DirName(n tree.Node) string {
	if n.Annotation == nil {
		return ""
	}
	return sanitize(n.Annotation.Name() + "=" + n.Bucket.Label)
}

func sanitize(s string) string {
	return strings.NewReplacer("/", "_", "\x00", "").Replace(s)
}

// GetNode implements Graph.
func (g *ExplorerGraph) GetNode(id string) (*Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id = normalize(id)
	store := g.current()
	if n, err := store.GetNode(id); err == nil {
		return n, nil
	}
	parent := path.Dir(id)
	if parent == "." {
		parent = ""
	}
	idx, ok := g.dirs[parent]
	if !ok || g.listed[idx] {
		return nil, ErrNotFound
	}
	if err := g.listFiles(idx); err != nil {
		return nil, err
	}
	return g.store.GetNode(id)
}

// ListChildren implements Graph.
func (g *ExplorerGraph) ListChildren(id string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id = normalize(id)
	g.current()
	idx, ok := g.dirs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := g.listFiles(idx); err != nil {
		return nil, err
	}
	return g.store.ListChildren(id)
}

// ReadContent implements Graph.
func (g *ExplorerGraph) ReadContent(id string, buf []byte, offset int64) (int, error) {
	n, err := g.GetNode(id)
	if err != nil {
		return 0, err
	}
	return readAt(n.Data, buf, offset), nil
}

// NodeIndex resolves a directory ID to its tree node index.
func (g *ExplorerGraph) NodeIndex(id string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current()
	idx, ok := g.dirs[normalize(id)]
	return idx, ok
}

// Description summarises the projected tree.
type Description struct {
	Hierarchy []string `json:"hierarchy"`
	Filters   string   `json:"filters"`
	Nodes     int      `json:"nodes"`
	MaxFiles  int      `json:"max_files"`
}

// Describe reports what the projection is currently built from.
func (g *ExplorerGraph) Describe() Description {
	t := g.ex.Tree()
	return Description{
		Hierarchy: t.Hierarchy().Names(),
		Filters:   api.FiltersKey(t.BaseFilters()),
		Nodes:     t.Len(),
		MaxFiles:  g.maxFiles,
	}
}

// current returns the store for the explorer's present tree, rebuilding the
// directory skeleton when the tree changed. Must be called with g.mu held.
func (g *ExplorerGraph) current() *MemoryStore {
	t := g.ex.Tree()
	if t == g.tree && g.store != nil {
		return g.store
	}

	store := NewMemoryStore()
	dirs := map[string]int{"": 0}
	paths := make([]string, t.Len())
	for _, n := range t.Nodes() {
		if n.IsRoot {
			continue
		}
		id := path.Join(paths[n.Parent], DirName(n))
		if _, dup := dirs[id]; dup {
			id = fmt.Sprintf("%s~%d", id, n.Index)
		}
		paths[n.Index] = id
		dirs[id] = n.Index
		_ = store.Attach(paths[n.Parent], &Node{ID: id, Mode: fs.ModeDir, ModTime: g.created})
	}

	g.tree = t
	g.store = store
	g.dirs = dirs
	g.paths = paths
	g.listed = make(map[int]bool)
	g.logger.Debug("projection rebuilt", zap.Int("dirs", len(dirs)))
	return store
}

// listFiles materialises the record files of leaf node index. Must be
// called with g.mu held.
func (g *ExplorerGraph) listFiles(index int) error {
	if g.listed[index] {
		return nil
	}
	n, ok := g.tree.Get(index)
	if !ok || !n.IsLeaf {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if err := g.ex.VisibleRangeChanged(ctx, index, 0, g.maxFiles-1); err != nil {
		g.logger.Warn("list files failed", zap.Int("node", index), zap.Error(err))
		return err
	}
	if g.ex.Tree() != g.tree {
		// rebuilt while fetching; the next call projects the new tree
		return nil
	}

	count := g.ex.ItemCount(index)
	if count > g.maxFiles {
		count = g.maxFiles
	}
	dir := g.paths[index]
	seen := make(map[string]bool, count)
	for i := 0; i < count; i++ {
		rec, ok := g.ex.Record(index, i)
		if !ok {
			continue
		}
		data, err := g.render(rec)
		if err != nil {
			g.logger.Warn("render record failed", zap.Int("node", index), zap.Int("row", i), zap.Error(err))
			continue
		}
		detail := api.NewFileDetail(rec)
		modTime, ok := detail.Uploaded()
		if !ok {
			modTime = g.created
		}
		name := fileName(detail, i, seen)
		_ = g.store.Attach(dir, &Node{ID: path.Join(dir, name), Data: data, ModTime: modTime})
	}
	g.listed[index] = true
	g.logger.Debug("listed files", zap.Int("node", index), zap.String("dir", dir), zap.Int("files", len(seen)))
	return nil
}

func (g *ExplorerGraph) render(rec api.FileRecord) ([]byte, error) {
	id := api.NewFileDetail(rec).ID()
	if id != "" {
		if data, ok := g.rendered.get(id); ok {
			return data, nil
		}
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')
	if id != "" {
		g.rendered.put(id, data)
	}
	return data, nil
}

// fileName picks a unique name within one directory: the record's file
// name, then file name plus id, then the row number.
func fileName(d api.FileDetail, row int, seen map[string]bool) string {
	candidates := []string{d.Name()}
	if d.ID() != "" && d.ID() != d.Name() {
		candidates = append(candidates, d.Name()+"~"+d.ID())
	}
	candidates = append(candidates, fmt.Sprintf("row-%d", row))
	for _, c := range candidates {
		c = sanitize(c)
		if c == "" || c == "." || c == ".." || seen[c] {
			continue
		}
		seen[c] = true
		return c + FileSuffix
	}
	name := fmt.Sprintf("row-%d~%d", row, len(seen))
	seen[name] = true
	return name + FileSuffix
}
