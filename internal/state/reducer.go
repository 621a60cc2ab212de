package state

import (
	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
)

// Reduce applies a to s and returns the new state. It is pure.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case ReceiveAnnotationsAction:
		s.Metadata.Annotations = cloneAnnotations(act.Annotations)
	case SelectDisplayAnnotationAction:
		if act.Replace {
			s.Selection.DisplayAnnotations = cloneAnnotations(act.Annotations)
			break
		}
		next := cloneAnnotations(s.Selection.DisplayAnnotations)
		for _, add := range act.Annotations {
			if _, ok := annotation.Find(next, add.Name()); !ok {
				next = append(next, add)
			}
		}
		s.Selection.DisplayAnnotations = next
	case DeselectDisplayAnnotationAction:
		next := make([]*annotation.Annotation, 0, len(s.Selection.DisplayAnnotations))
		for _, d := range s.Selection.DisplayAnnotations {
			if d.Name() != act.Annotation.Name() {
				next = append(next, d)
			}
		}
		s.Selection.DisplayAnnotations = next
	case SelectFileAction:
		s.Selection.SelectedFiles = unique(act.Files)
	case DeselectFileAction:
		drop := make(map[string]bool, len(act.Files))
		for _, f := range act.Files {
			drop[f] = true
		}
		next := make([]string, 0, len(s.Selection.SelectedFiles))
		for _, f := range s.Selection.SelectedFiles {
			if !drop[f] {
				next = append(next, f)
			}
		}
		s.Selection.SelectedFiles = next
	case SetAnnotationHierarchyAction:
		s.Selection.AnnotationHierarchy = act.Hierarchy.Clone()
	case SetFileFiltersAction:
		s.Selection.Filters = append([]api.Filter(nil), act.Filters...)
	case ShowContextMenuAction:
		s.Interaction.ContextMenuVisible = true
		s.Interaction.ContextMenuItems = append([]MenuItem(nil), act.Items...)
		s.Interaction.ContextMenuPosition = act.Position
	case HideContextMenuAction:
		s.Interaction.ContextMenuVisible = false
	case RequestAnnotationsAction,
		ReorderAnnotationHierarchyAction,
		RemoveFromAnnotationHierarchyAction,
		DownloadFilesAction:
		// handled by logics and effects
	}
	return s
}

func cloneAnnotations(as []*annotation.Annotation) []*annotation.Annotation {
	if as == nil {
		return nil
	}
	return append([]*annotation.Annotation(nil), as...)
}

func unique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
