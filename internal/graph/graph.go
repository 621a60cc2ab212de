package graph

import (
	"errors"
	"io/fs"
	"sync"
	"time"
)

var ErrNotFound = errors.New("node not found")

// Node is the universal primitive.
// The Mode field explicitly declares whether this is a file or directory.
type Node struct {
	ID       string
	Mode     fs.FileMode // fs.ModeDir for directories, 0 for regular files
	ModTime  time.Time
	Data     []byte   // File content (nil for directories)
	Children []string // Child node IDs (directories only)
}

// ContentSize returns the byte length of this node's content.
func (n *Node) ContentSize() int64 {
	return int64(len(n.Data))
}

// Graph is the interface the mount layers read through.
type Graph interface {
	GetNode(id string) (*Node, error)
	ListChildren(id string) ([]string, error)
	ReadContent(id string, buf []byte, offset int64) (int, error)
}

// MemoryStore is a Graph held entirely in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	roots []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]*Node),
		roots: []string{},
	}
}

// AddRoot registers a node as a top-level root and adds it to the store.
func (s *MemoryStore) AddRoot(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
	for _, r := range s.roots {
		if r == n.ID {
			return
		}
	}
	s.roots = append(s.roots, n.ID)
}

// AddNode adds a non-root node to the store.
func (s *MemoryStore) AddNode(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
}

// Attach adds n and links it under parentID. An empty parentID makes n a root.
func (s *MemoryStore) Attach(parentID string, n *Node) error {
	parentID = normalize(parentID)
	if parentID == "" {
		s.AddRoot(n)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	parent, ok := s.nodes[parentID]
	if !ok || !parent.Mode.IsDir() {
		return ErrNotFound
	}
	s.nodes[n.ID] = n
	for _, c := range parent.Children {
		if c == n.ID {
			return nil
		}
	}
	parent.Children = append(parent.Children, n.ID)
	return nil
}

// Len returns the number of nodes in the store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// GetNode implements Graph. The returned node is a copy; Attach may grow
// the stored node's children concurrently.
func (s *MemoryStore) GetNode(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[normalize(id)]
	if !ok {
		return nil, ErrNotFound
	}
	out := *n
	out.Children = append([]string(nil), n.Children...)
	return &out, nil
}

// ListChildren implements Graph.
func (s *MemoryStore) ListChildren(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id = normalize(id)
	if id == "" {
		return append([]string(nil), s.roots...), nil
	}

	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]string(nil), n.Children...), nil
}

// ReadContent implements Graph.
func (s *MemoryStore) ReadContent(id string, buf []byte, offset int64) (int, error) {
	node, err := s.GetNode(id)
	if err != nil {
		return 0, err
	}
	return readAt(node.Data, buf, offset), nil
}

func readAt(data, buf []byte, offset int64) int {
	if offset >= int64(len(data)) {
		return 0
	}
	end := offset + int64(len(buf))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return copy(buf, data[offset:end])
}

// normalize strips the leading slash mount layers hand us; "/" becomes "".
func normalize(id string) string {
	for len(id) > 0 && id[0] == '/' {
		id = id[1:]
	}
	return id
}

// contentCache is a simple FIFO-evicting bounded cache for rendered content.
type contentCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	keys    []string
	maxSize int
}

func newContentCache(maxSize int) *contentCache {
	return &contentCache{
		entries: make(map[string][]byte, maxSize),
		keys:    make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

func (c *contentCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *contentCache) put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = value
		return
	}
	if len(c.entries) >= c.maxSize {
		evict := c.keys[0]
		c.keys = c.keys[1:]
		delete(c.entries, evict)
	}
	c.entries[key] = value
	c.keys = append(c.keys, key)
}
