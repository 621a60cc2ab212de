package state

import (
	"github.com/agentic-research/fmsx/internal/annotation"
)

// Logic intercepts an action before it reaches the reducer. It returns the
// action to continue with, or false to drop it.
type Logic func(s State, a Action) (Action, bool)

// DefaultLogics returns the interceptors every store runs.
func DefaultLogics() []Logic {
	return []Logic{SelectFileLogic, ModifyAnnotationHierarchyLogic}
}

// SelectFileLogic resolves a selection against the existing one. Without
// updateExisting the given files replace the selection. With it, clicking a
// single already-selected file deselects it, and anything else is appended.
func SelectFileLogic(s State, a Action) (Action, bool) {
	sel, ok := a.(SelectFileAction)
	if !ok || !sel.UpdateExisting {
		return a, true
	}
	existing := s.Selection.SelectedFiles
	if !sel.List && len(sel.Files) == 1 && contains(existing, sel.Files[0]) {
		return DeselectFile(sel.Files[0]), true
	}
	merged := make([]string, 0, len(existing)+len(sel.Files))
	merged = append(merged, existing...)
	merged = append(merged, sel.Files...)
	return SelectFileAction{Files: unique(merged), List: true, UpdateExisting: true}, true
}

// ModifyAnnotationHierarchyLogic turns reorder and remove requests into an
// explicit SetAnnotationHierarchy. Unknown annotation names are dropped.
func ModifyAnnotationHierarchyLogic(s State, a Action) (Action, bool) {
	var (
		id     string
		moveTo int
		move   bool
	)
	switch act := a.(type) {
	case ReorderAnnotationHierarchyAction:
		id, moveTo, move = act.ID, act.MoveTo, true
	case RemoveFromAnnotationHierarchyAction:
		id = act.ID
	default:
		return a, true
	}

	target, ok := annotation.Find(s.Metadata.Annotations, id)
	if !ok {
		return nil, false
	}
	existing := s.Selection.AnnotationHierarchy
	present := existing.IndexOf(id) >= 0
	switch {
	case move:
		return SetAnnotationHierarchy(existing.Move(target, moveTo)), true
	case present:
		return SetAnnotationHierarchy(existing.Remove(id)), true
	default:
		// removing something that is not there
		return nil, false
	}
}
