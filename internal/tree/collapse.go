package tree

// CollapseState holds explicit per-node collapse choices keyed by node index.
// Absent entries fall back to the defaults in Tree.ResolveEffectiveCollapse.
type CollapseState map[int]bool

// ResolveEffectiveCollapse resolves whether index is effectively collapsed: the root never
// is; any collapsed ancestor collapses it; otherwise an explicit entry wins,
// and leaves default to collapsed while branches default to expanded.
func (t *Tree) ResolveEffectiveCollapse(index int, state CollapseState) bool {
	n, ok := t.Get(index)
	if !ok || n.IsRoot {
		return false
	}
	for p := n.Parent; p != NoParent; p = t.nodes[p].Parent {
		if t.ownCollapsed(p, state) {
			return true
		}
	}
	return t.ownCollapsed(index, state)
}

func (t *Tree) ownCollapsed(index int, state CollapseState) bool {
	n := t.nodes[index]
	if n.IsRoot {
		return false
	}
	if v, ok := state[index]; ok {
		return v
	}
	return n.IsLeaf
}

// Toggle flips the node's own collapse value, starting from its default when
// no explicit value exists. The root cannot be toggled.
func (s CollapseState) Toggle(t *Tree, index int) {
	n, ok := t.Get(index)
	if !ok || n.IsRoot {
		return
	}
	prev, ok := s[index]
	if !ok {
		prev = n.IsLeaf
	}
	s[index] = !prev
}

// Visible returns the indices of nodes whose rows take up space, in order.
func (t *Tree) Visible(state CollapseState) []int {
	var out []int
	for i, n := range t.nodes {
		if n.IsRoot || !t.ResolveEffectiveCollapse(n.Parent, state) {
			out = append(out, i)
		}
	}
	return out
}
