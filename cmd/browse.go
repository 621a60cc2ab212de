package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agentic-research/fmsx/internal/state"
)

var (
	hierarchyFlag string
	collapseFlag  string
	heightFlag    int
	nodeFlag      int
	startFlag     int
	stopFlag      int
	downloadDir   string
)

var annotationsCmd = &cobra.Command{
	Use:   "annotations",
	Short: "List the annotations files can be grouped by",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), sessionOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		st := s.store.State()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tDISPLAY NAME\tUNITS")
		for _, a := range st.Metadata.Annotations {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Name(), a.Type(), a.DisplayName(), a.Units())
		}
		return w.Flush()
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the grouped tree with collapse state and item sizes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		toggles, err := parseInts(splitList(collapseFlag))
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context(), sessionOptions{hierarchy: splitList(hierarchyFlag)})
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		for _, i := range toggles {
			if _, ok := s.ex.Node(i); !ok {
				return fmt.Errorf("no node %d", i)
			}
			s.ex.Toggle(i)
		}
		return s.ex.WriteOutline(cmd.OutOrStdout(), heightFlag)
	},
}

var rowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Fetch and print rows of one tree node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if startFlag < 0 || stopFlag < startFlag {
			return fmt.Errorf("invalid range [%d, %d]", startFlag, stopFlag)
		}
		s, err := openSession(cmd.Context(), sessionOptions{hierarchy: splitList(hierarchyFlag)})
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		n, ok := s.ex.Node(nodeFlag)
		if !ok {
			return fmt.Errorf("no node %d", nodeFlag)
		}
		if err := s.ex.VisibleRangeChanged(cmd.Context(), nodeFlag, startFlag, stopFlag); err != nil {
			return err
		}
		stop := stopFlag
		if total := s.ex.ItemCount(nodeFlag); stop >= total {
			stop = total - 1
		}
		out := cmd.OutOrStdout()
		if label := n.Label(); label != "" {
			fmt.Fprintln(out, label)
		}
		for i, row := range s.ex.Rows(nodeFlag, startFlag, stop) {
			fmt.Fprintf(out, "%6d  %s\n", startFlag+i, row)
		}
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <file-id>...",
	Short: "Download file content into a directory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), sessionOptions{downloadDir: downloadDir})
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		s.store.Dispatch(cmd.Context(), state.SelectFiles(args, false))
		items := state.ContextMenuItems(s.store.State())
		for _, item := range items {
			if item.Key == state.MenuDownload && item.Disabled {
				return fmt.Errorf("nothing selected")
			}
		}
		s.store.Dispatch(cmd.Context(), state.DownloadFiles(state.SelectedFiles(s.store.State())))
		s.store.WhenComplete()
		fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d file(s) to %s\n", len(args), downloadDir)
		return nil
	},
}

func init() {
	treeCmd.Flags().StringVar(&hierarchyFlag, "hierarchy", "", "Comma separated annotations to group by")
	treeCmd.Flags().StringVar(&collapseFlag, "collapse", "", "Comma separated node indices to toggle")
	treeCmd.Flags().IntVar(&heightFlag, "height", 600, "Container height used for item sizes")

	rowsCmd.Flags().StringVar(&hierarchyFlag, "hierarchy", "", "Comma separated annotations to group by")
	rowsCmd.Flags().IntVar(&nodeFlag, "node", 0, "Tree node index")
	rowsCmd.Flags().IntVar(&startFlag, "start", 0, "First row")
	rowsCmd.Flags().IntVar(&stopFlag, "stop", 19, "Last row, inclusive")

	downloadCmd.Flags().StringVarP(&downloadDir, "dir", "o", ".", "Destination directory")

	rootCmd.AddCommand(annotationsCmd, treeCmd, rowsCmd, downloadCmd)
}
