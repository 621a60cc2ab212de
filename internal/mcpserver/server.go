// Package mcpserver exposes the explorer as MCP tools so an agent can group,
// browse and page through files.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
	"github.com/agentic-research/fmsx/internal/explorer"
	"github.com/agentic-research/fmsx/internal/state"
)

// DefaultContainerHeight is the viewport height used for outline sizes.
const DefaultContainerHeight = 600

// Server wires MCP tool calls to a state store and its explorer.
type Server struct {
	store  *state.Store
	ex     *explorer.Explorer
	mcp    *server.MCPServer
	logger *zap.Logger
}

// New registers the fmsx tools on a fresh MCP server.
func New(store *state.Store, ex *explorer.Explorer, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		ex:     ex,
		mcp:    server.NewMCPServer("fmsx", version, server.WithToolCapabilities(false)),
		logger: logger,
	}

	s.mcp.AddTool(mcp.NewTool("list_annotations",
		mcp.WithDescription("List the annotations files can be grouped and filtered by"),
	), s.listAnnotations)

	s.mcp.AddTool(mcp.NewTool("set_hierarchy",
		mcp.WithDescription("Group files by the given annotations, outermost first"),
		mcp.WithString("hierarchy", mcp.Required(),
			mcp.Description("Comma separated annotation names; empty for a flat list")),
	), s.setHierarchy)

	s.mcp.AddTool(mcp.NewTool("set_filters",
		mcp.WithDescription("Restrict every group to files matching all filters"),
		mcp.WithString("filters", mcp.Required(),
			mcp.Description("Filters joined by '&', e.g. plate=P1&size>=10")),
	), s.setFilters)

	s.mcp.AddTool(mcp.NewTool("show_tree",
		mcp.WithDescription("Show the visible groups with their collapse state and file counts"),
	), s.showTree)

	s.mcp.AddTool(mcp.NewTool("toggle_node",
		mcp.WithDescription("Collapse or expand a group"),
		mcp.WithNumber("node", mcp.Required(), mcp.Description("Node index from show_tree")),
	), s.toggleNode)

	s.mcp.AddTool(mcp.NewTool("fetch_rows",
		mcp.WithDescription("Load and render rows of a group"),
		mcp.WithNumber("node", mcp.Description("Node index from show_tree (default 0)")),
		mcp.WithNumber("start", mcp.Description("First row (default 0)")),
		mcp.WithNumber("stop", mcp.Description("Last row, inclusive (default 19)")),
	), s.fetchRows)

	s.mcp.AddTool(mcp.NewTool("select_files",
		mcp.WithDescription("Select files by id"),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma separated file ids")),
		mcp.WithBoolean("update_existing", mcp.Description("Add to the selection instead of replacing it")),
	), s.selectFiles)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves the tools over stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) listAnnotations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.store.State()
	var b strings.Builder
	for i, item := range state.AnnotationListItems(st) {
		fmt.Fprintf(&b, "%s\t%s\t%s", item.ID, st.Metadata.Annotations[i].Type(), item.Title)
		if item.Description != "" {
			fmt.Fprintf(&b, "\t%s", item.Description)
		}
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("no annotations"), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) setHierarchy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := splitList(req.GetString("hierarchy", ""))
	h, err := annotation.Resolve(s.store.State().Metadata.Annotations, names)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.store.Dispatch(ctx, state.SetAnnotationHierarchy(h))
	s.logger.Debug("hierarchy set", zap.Strings("hierarchy", names))
	return s.outline()
}

func (s *Server) setFilters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var filters []api.Filter
	for _, part := range strings.Split(req.GetString("filters", ""), "&") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := api.ParseFilter(part)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filters = append(filters, f)
	}
	s.store.Dispatch(ctx, state.SetFileFilters(filters))
	return s.outline()
}

func (s *Server) showTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.outline()
}

func (s *Server) toggleNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetInt("node", -1)
	if _, ok := s.ex.Node(node); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no node %d", node)), nil
	}
	s.ex.Toggle(node)
	return s.outline()
}

func (s *Server) fetchRows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := req.GetInt("node", 0)
	start := req.GetInt("start", 0)
	stop := req.GetInt("stop", start+19)
	if start < 0 || stop < start {
		return mcp.NewToolResultError(fmt.Sprintf("invalid range [%d, %d]", start, stop)), nil
	}
	if err := s.ex.VisibleRangeChanged(ctx, node, start, stop); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	count := s.ex.ItemCount(node)
	if stop >= count {
		stop = count - 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, "node %d: %d files\n", node, count)
	for i, row := range s.ex.Rows(node, start, stop) {
		fmt.Fprintf(&b, "%d\t%s\n", start+i, row)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) selectFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := splitList(req.GetString("ids", ""))
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids is empty"), nil
	}
	s.store.Dispatch(ctx, state.SelectFiles(ids, req.GetBool("update_existing", false)))
	selected := state.SelectedFiles(s.store.State())
	return mcp.NewToolResultText("selected: " + strings.Join(selected, ", ")), nil
}

func (s *Server) outline() (*mcp.CallToolResult, error) {
	var b strings.Builder
	if err := s.ex.WriteOutline(&b, DefaultContainerHeight); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(b.String()), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
