// Package state holds the explorer's application state and the machinery
// that changes it: a closed set of actions, a pure reducer, interceptor
// logics that run before the reducer, and effects that run after it.
package state

import (
	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
)

// State is the whole application state. Treat it as a value: the reducer
// returns a new State and never writes through the input's slices.
type State struct {
	Metadata    Metadata
	Selection   Selection
	Interaction Interaction
}

// Metadata is what the query service told us about the data.
type Metadata struct {
	Annotations []*annotation.Annotation
}

// Selection is what the user has chosen.
type Selection struct {
	AnnotationHierarchy annotation.Hierarchy
	DisplayAnnotations  []*annotation.Annotation
	SelectedFiles       []string
	Filters             []api.Filter
}

// Interaction is transient UI state.
type Interaction struct {
	ContextMenuVisible  bool
	ContextMenuItems    []MenuItem
	ContextMenuPosition Position
}

// MenuItem is one context menu entry.
type MenuItem struct {
	Key      string
	Text     string
	Disabled bool
}

// Position is a screen coordinate.
type Position struct {
	X, Y int
}

// Initial returns the empty starting state.
func Initial() State {
	return State{}
}
