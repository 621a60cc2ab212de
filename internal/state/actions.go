package state

import (
	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
)

// Action is a state transition request. The set of implementations is closed.
type Action interface {
	Type() string
	isAction()
}

const (
	TypeRequestAnnotations            = "REQUEST_ANNOTATIONS"
	TypeReceiveAnnotations            = "RECEIVE_ANNOTATIONS"
	TypeSelectDisplayAnnotation       = "SELECT_DISPLAY_ANNOTATION"
	TypeDeselectDisplayAnnotation     = "DESELECT_DISPLAY_ANNOTATION"
	TypeSelectFile                    = "SELECT_FILE"
	TypeDeselectFile                  = "DESELECT_FILE"
	TypeReorderAnnotationHierarchy    = "REORDER_ANNOTATION_HIERARCHY"
	TypeRemoveFromAnnotationHierarchy = "REMOVE_FROM_ANNOTATION_HIERARCHY"
	TypeSetAnnotationHierarchy        = "SET_ANNOTATION_HIERARCHY"
	TypeSetFileFilters                = "SET_FILE_FILTERS"
	TypeShowContextMenu               = "SHOW_CONTEXT_MENU"
	TypeHideContextMenu               = "HIDE_CONTEXT_MENU"
	TypeDownloadFiles                 = "DOWNLOAD_FILES"
)

type RequestAnnotationsAction struct{}

type ReceiveAnnotationsAction struct {
	Annotations []*annotation.Annotation
}

type SelectDisplayAnnotationAction struct {
	Annotations []*annotation.Annotation
	Replace     bool
}

type DeselectDisplayAnnotationAction struct {
	Annotation *annotation.Annotation
}

// SelectFileAction carries either a single clicked file or a list.
type SelectFileAction struct {
	Files          []string
	List           bool
	UpdateExisting bool
}

type DeselectFileAction struct {
	Files []string
}

// ReorderAnnotationHierarchyAction moves, or inserts, the named annotation.
type ReorderAnnotationHierarchyAction struct {
	ID     string
	MoveTo int
}

type RemoveFromAnnotationHierarchyAction struct {
	ID string
}

type SetAnnotationHierarchyAction struct {
	Hierarchy annotation.Hierarchy
}

type SetFileFiltersAction struct {
	Filters []api.Filter
}

type ShowContextMenuAction struct {
	Items    []MenuItem
	Position Position
}

type HideContextMenuAction struct{}

type DownloadFilesAction struct {
	Files []string
}

func (RequestAnnotationsAction) Type() string        { return TypeRequestAnnotations }
func (ReceiveAnnotationsAction) Type() string        { return TypeReceiveAnnotations }
func (SelectDisplayAnnotationAction) Type() string   { return TypeSelectDisplayAnnotation }
func (DeselectDisplayAnnotationAction) Type() string { return TypeDeselectDisplayAnnotation }
func (SelectFileAction) Type() string                { return TypeSelectFile }
func (DeselectFileAction) Type() string              { return TypeDeselectFile }
func (ReorderAnnotationHierarchyAction) Type() string {
	return TypeReorderAnnotationHierarchy
}
func (RemoveFromAnnotationHierarchyAction) Type() string {
	return TypeRemoveFromAnnotationHierarchy
}
func (SetAnnotationHierarchyAction) Type() string { return TypeSetAnnotationHierarchy }
func (SetFileFiltersAction) Type() string         { return TypeSetFileFilters }
func (ShowContextMenuAction) Type() string        { return TypeShowContextMenu }
func (HideContextMenuAction) Type() string        { return TypeHideContextMenu }
func (DownloadFilesAction) Type() string          { return TypeDownloadFiles }

func (RequestAnnotationsAction) isAction()            {}
func (ReceiveAnnotationsAction) isAction()            {}
func (SelectDisplayAnnotationAction) isAction()       {}
func (DeselectDisplayAnnotationAction) isAction()     {}
func (SelectFileAction) isAction()                    {}
func (DeselectFileAction) isAction()                  {}
func (ReorderAnnotationHierarchyAction) isAction()    {}
func (RemoveFromAnnotationHierarchyAction) isAction() {}
func (SetAnnotationHierarchyAction) isAction()        {}
func (SetFileFiltersAction) isAction()                {}
func (ShowContextMenuAction) isAction()               {}
func (HideContextMenuAction) isAction()               {}
func (DownloadFilesAction) isAction()                 {}

func RequestAnnotations() Action { return RequestAnnotationsAction{} }

func ReceiveAnnotations(as []*annotation.Annotation) Action {
	return ReceiveAnnotationsAction{Annotations: as}
}

// SelectDisplayAnnotation adds annotations to the displayed columns, or
// replaces them entirely when replace is set.
func SelectDisplayAnnotation(as []*annotation.Annotation, replace bool) Action {
	return SelectDisplayAnnotationAction{Annotations: as, Replace: replace}
}

func DeselectDisplayAnnotation(a *annotation.Annotation) Action {
	return DeselectDisplayAnnotationAction{Annotation: a}
}

// SelectFile selects one clicked file. With updateExisting, clicking an
// already selected file deselects it.
func SelectFile(file string, updateExisting bool) Action {
	return SelectFileAction{Files: []string{file}, UpdateExisting: updateExisting}
}

// SelectFiles selects a list of files, replacing or extending the selection.
func SelectFiles(files []string, updateExisting bool) Action {
	return SelectFileAction{Files: files, List: true, UpdateExisting: updateExisting}
}

func DeselectFile(files ...string) Action {
	return DeselectFileAction{Files: files}
}

func ReorderAnnotationHierarchy(id string, moveTo int) Action {
	return ReorderAnnotationHierarchyAction{ID: id, MoveTo: moveTo}
}

func RemoveFromAnnotationHierarchy(id string) Action {
	return RemoveFromAnnotationHierarchyAction{ID: id}
}

func SetAnnotationHierarchy(h annotation.Hierarchy) Action {
	return SetAnnotationHierarchyAction{Hierarchy: h}
}

func SetFileFilters(filters []api.Filter) Action {
	return SetFileFiltersAction{Filters: filters}
}

func ShowContextMenu(items []MenuItem, pos Position) Action {
	return ShowContextMenuAction{Items: items, Position: pos}
}

func HideContextMenu() Action { return HideContextMenuAction{} }

func DownloadFiles(files []string) Action {
	return DownloadFilesAction{Files: files}
}

// DropEvent is a drag-and-drop reorder intent from a hierarchy editor.
type DropEvent struct {
	ID     string
	MoveTo int
}

// Action converts the drop into a reorder action.
func (d DropEvent) Action() Action {
	return ReorderAnnotationHierarchy(d.ID, d.MoveTo)
}
