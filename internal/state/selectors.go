package state

import (
	"github.com/agentic-research/fmsx/internal/annotation"
)

// MenuDownload is the context menu key for downloading the selection.
const MenuDownload = "DOWNLOAD"

// ListItem is one entry in the annotation sidebar.
type ListItem struct {
	ID          string
	Title       string
	Description string
}

// AnnotationListItems maps the known annotations to sidebar items.
func AnnotationListItems(s State) []ListItem {
	out := make([]ListItem, len(s.Metadata.Annotations))
	for i, a := range s.Metadata.Annotations {
		out[i] = ListItem{ID: a.Name(), Title: a.DisplayName(), Description: a.Description()}
	}
	return out
}

func SelectedFiles(s State) []string {
	return append([]string(nil), s.Selection.SelectedFiles...)
}

func AnnotationHierarchy(s State) annotation.Hierarchy {
	return s.Selection.AnnotationHierarchy.Clone()
}

func DisplayAnnotations(s State) []*annotation.Annotation {
	return cloneAnnotations(s.Selection.DisplayAnnotations)
}

// ContextMenuItems builds the file context menu. Download is disabled when
// nothing is selected.
func ContextMenuItems(s State) []MenuItem {
	return []MenuItem{{
		Key:      MenuDownload,
		Text:     "Download",
		Disabled: len(s.Selection.SelectedFiles) == 0,
	}}
}
