// Package tree flattens an annotation hierarchy into a pre-ordered list of
// nodes. Each node is a FileSet narrowed by its ancestors' bucket filters;
// parents are referenced by index so the whole tree lives in one slice.
package tree

import (
	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
	"github.com/agentic-research/fmsx/internal/fileset"
)

// NoParent is the Parent index of the root.
const NoParent = -1

// Node is one entry of the flattened tree.
type Node struct {
	Index  int
	Depth  int
	Parent int
	IsRoot bool
	IsLeaf bool
	// Annotation is the hierarchy level this node groups by. Nil at the root.
	Annotation *annotation.Annotation
	Bucket     Bucket
	FileSet    *fileset.FileSet
}

// Label is the row header for the node: "<annotation>: <bucket>".
func (n Node) Label() string {
	if n.IsRoot || n.Annotation == nil {
		return ""
	}
	return n.Annotation.DisplayName() + ": " + n.Bucket.Label
}

// SetFactory creates the FileSet for the node at index.
type SetFactory func(index int, filters []api.Filter) *fileset.FileSet

// Tree is an immutable flattened hierarchy.
type Tree struct {
	nodes     []Node
	hierarchy annotation.Hierarchy
	base      []api.Filter
	baseKey   string
}

// Build flattens hierarchy under the base filters. The root holds every file
// matching base; each level below adds one bucket filter per distinct value
// of its annotation. Identical inputs yield identical node order.
func Build(hierarchy annotation.Hierarchy, base []api.Filter, newSet SetFactory) *Tree {
	t := &Tree{
		hierarchy: hierarchy.Clone(),
		base:      append([]api.Filter(nil), base...),
		baseKey:   api.FiltersKey(base),
	}
	t.nodes = append(t.nodes, Node{
		Index:   0,
		Parent:  NoParent,
		IsRoot:  true,
		IsLeaf:  len(hierarchy) == 0,
		FileSet: newSet(0, t.base),
	})
	t.grow(0, t.base, 0, newSet)
	return t
}

func (t *Tree) grow(parent int, filters []api.Filter, level int, newSet SetFactory) {
	if level >= len(t.hierarchy) {
		return
	}
	a := t.hierarchy[level]
	for _, b := range Buckets(a) {
		f := make([]api.Filter, 0, len(filters)+len(b.Filters))
		f = append(f, filters...)
		f = append(f, b.Filters...)
		idx := len(t.nodes)
		t.nodes = append(t.nodes, Node{
			Index:      idx,
			Depth:      level + 1,
			Parent:     parent,
			IsLeaf:     level+1 == len(t.hierarchy),
			Annotation: a,
			Bucket:     b,
			FileSet:    newSet(idx, f),
		})
		t.grow(idx, f, level+1, newSet)
	}
}

// Len returns the number of nodes including the root.
func (t *Tree) Len() int { return len(t.nodes) }

// Nodes returns the flattened nodes in pre-order.
func (t *Tree) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Get returns the node at index.
func (t *Tree) Get(index int) (Node, bool) {
	if index < 0 || index >= len(t.nodes) {
		return Node{}, false
	}
	return t.nodes[index], true
}

// Hierarchy returns the hierarchy the tree was built from.
func (t *Tree) Hierarchy() annotation.Hierarchy { return t.hierarchy.Clone() }

// BaseFilters returns the filters applied at the root.
func (t *Tree) BaseFilters() []api.Filter { return append([]api.Filter(nil), t.base...) }

// Equivalent reports whether building from hierarchy and base would produce
// this same tree.
func (t *Tree) Equivalent(hierarchy annotation.Hierarchy, base []api.Filter) bool {
	return t.hierarchy.Equal(hierarchy) && t.baseKey == api.FiltersKey(base)
}

// Current reports whether set still occupies the slot at index. Responses
// for any other set are stale.
func (t *Tree) Current(index int, set *fileset.FileSet) bool {
	if t == nil {
		return false
	}
	n, ok := t.Get(index)
	return ok && n.FileSet == set
}

// Children returns the indices of the direct children of index.
func (t *Tree) Children(index int) []int {
	var out []int
	for _, i := range t.Descendants(index) {
		if t.nodes[i].Parent == index {
			out = append(out, i)
		}
	}
	return out
}

// Descendants returns every index below index. Pre-order keeps a subtree
// contiguous, so the scan stops at the first node that is not deeper.
func (t *Tree) Descendants(index int) []int {
	n, ok := t.Get(index)
	if !ok {
		return nil
	}
	var out []int
	for i := index + 1; i < len(t.nodes) && t.nodes[i].Depth > n.Depth; i++ {
		out = append(out, i)
	}
	return out
}

// Path returns the indices from the root down to index.
func (t *Tree) Path(index int) []int {
	var rev []int
	for i := index; i != NoParent; i = t.nodes[i].Parent {
		if i < 0 || i >= len(t.nodes) {
			return nil
		}
		rev = append(rev, i)
	}
	out := make([]int, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out
}

// Retire marks every FileSet in the tree as superseded.
func (t *Tree) Retire() {
	for _, n := range t.nodes {
		n.FileSet.Retire()
	}
}
