package annotation

// Hierarchy is an ordered list of annotations to group files by, outermost first.
type Hierarchy []*Annotation

// Names returns the annotation names in hierarchy order.
func (h Hierarchy) Names() []string { return Names(h) }

// IndexOf returns the position of the named annotation, or -1.
func (h Hierarchy) IndexOf(name string) int {
	for i, a := range h {
		if a.name == name {
			return i
		}
	}
	return -1
}

// Equal reports whether both hierarchies name the same annotations in the same order.
func (h Hierarchy) Equal(o Hierarchy) bool {
	if len(h) != len(o) {
		return false
	}
	for i := range h {
		if h[i].name != o[i].name {
			return false
		}
	}
	return true
}

// Clone returns a copy that can be modified without touching h.
func (h Hierarchy) Clone() Hierarchy {
	if h == nil {
		return nil
	}
	out := make(Hierarchy, len(h))
	copy(out, h)
	return out
}

// Move places a at position moveTo. If a is already present it is first
// removed. moveTo is clamped into the valid range.
func (h Hierarchy) Move(a *Annotation, moveTo int) Hierarchy {
	out := h.Remove(a.name)
	if moveTo < 0 {
		moveTo = 0
	}
	if moveTo > len(out) {
		moveTo = len(out)
	}
	out = append(out, nil)
	copy(out[moveTo+1:], out[moveTo:])
	out[moveTo] = a
	return out
}

// Remove returns a copy of h without the named annotation.
func (h Hierarchy) Remove(name string) Hierarchy {
	out := make(Hierarchy, 0, len(h))
	for _, a := range h {
		if a.name != name {
			out = append(out, a)
		}
	}
	return out
}
