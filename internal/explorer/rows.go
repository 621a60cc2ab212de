package explorer

import (
	"strings"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
)

const (
	// LoadingPlaceholder stands in for a row whose record has not arrived.
	LoadingPlaceholder = "Loading..."
	// ColumnSeparator joins the display columns of a row.
	ColumnSeparator = " | "
)

// RenderRow formats one row: each display annotation's value joined by
// ColumnSeparator, or the placeholder when the record is not loaded.
func RenderRow(display []*annotation.Annotation, rec api.FileRecord, loaded bool) string {
	if !loaded {
		return LoadingPlaceholder
	}
	cols := make([]string, len(display))
	for i, a := range display {
		cols[i] = a.DisplayValue(rec)
	}
	return strings.Join(cols, ColumnSeparator)
}
