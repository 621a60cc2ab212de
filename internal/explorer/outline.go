package explorer

import (
	"fmt"
	"io"
	"strings"
)

// RootLabel names the root row in an outline.
const RootLabel = "All files"

// WriteOutline prints one line per visible node: index, collapse marker,
// label, file count when known and the node's size in a container of the
// given height.
func (e *Explorer) WriteOutline(w io.Writer, containerHeight int) error {
	t := e.Tree()
	for _, i := range e.Visible() {
		n, _ := t.Get(i)
		label := n.Label()
		if n.IsRoot {
			label = RootLabel
		}
		marker := "[-]"
		if e.IsCollapsed(i) {
			marker = "[+]"
		}
		count := "?"
		if n.FileSet.TotalKnown() {
			count = fmt.Sprint(n.FileSet.TotalCount())
		}
		_, err := fmt.Fprintf(w, "%3d %s%s %s (%s files) size=%d\n",
			i, strings.Repeat("  ", n.Depth), marker, label, count, e.ItemSize(i, containerHeight))
		if err != nil {
			return err
		}
	}
	return nil
}
