package tree

// Layout holds the row heights used by ItemSize.
type Layout struct {
	CollapsedHeight int
	RowHeight       int
	ExpandedHeight  int
}

// DefaultLayout matches the stock explorer sizing.
func DefaultLayout() Layout {
	return Layout{
		CollapsedHeight: 0,
		RowHeight:       35,
		ExpandedHeight:  300,
	}
}

// ItemSize returns the vertical size of node index. The root fills the
// container; a node under a collapsed parent takes no space; an expanded
// leaf shows its file list; anything else is a single header row.
func (l Layout) ItemSize(t *Tree, state CollapseState, index, containerHeight int) int {
	n, ok := t.Get(index)
	if !ok {
		return l.CollapsedHeight
	}
	if n.IsRoot {
		return containerHeight
	}
	if t.ResolveEffectiveCollapse(n.Parent, state) {
		return l.CollapsedHeight
	}
	if n.IsLeaf && !t.ResolveEffectiveCollapse(index, state) {
		return l.ExpandedHeight
	}
	return l.RowHeight
}
