package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	fmsxfs "github.com/agentic-research/fmsx/internal/fs"
	"github.com/agentic-research/fmsx/internal/graph"
	"github.com/agentic-research/fmsx/internal/nfsmount"
)

var (
	mountHierarchy string
	useNFS         bool
	nfsAddr        string
	maxFiles       int
)

var mountCmd = &cobra.Command{
	Use:   "mount <mountpoint>",
	Short: "Project the grouped tree as a read-only filesystem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mountPoint := args[0]

		s, err := openSession(cmd.Context(), sessionOptions{hierarchy: splitList(mountHierarchy)})
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		limit := cfg.Explorer.MaxFiles
		if cmd.Flags().Changed("max-files") {
			limit = maxFiles
		}
		g := graph.NewExplorerGraph(s.ex,
			graph.WithMaxFiles(limit),
			graph.WithFetchTimeout(cfg.Query.Timeout),
			graph.WithLogger(s.logger.Named("graph")),
		)

		if !useNFS {
			fmt.Fprintf(cmd.OutOrStdout(), "Mounting fmsx at %s (using cgofuse)...\n", mountPoint)
			// uid/gid make the mount ours, which fuse-t needs
			opts := []string{
				"-o", fmt.Sprintf("uid=%d", os.Getuid()),
				"-o", fmt.Sprintf("gid=%d", os.Getgid()),
			}
			return fmsxfs.Mount(fmsxfs.NewExplorerFS(g), mountPoint, opts)
		}

		gfs := nfsmount.NewGraphFS(g, func() any { return g.Describe() })
		srv, err := nfsmount.NewServer(gfs, nfsAddr, s.logger.Named("nfs"))
		if err != nil {
			return err
		}
		defer func() { _ = srv.Close() }()

		if err := nfsmount.Mount(srv.Port(), mountPoint); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Mounted fmsx at %s over NFS (port %d). Ctrl-C to unmount.\n", mountPoint, srv.Port())

		<-cmd.Context().Done()
		if err := nfsmount.Unmount(mountPoint); err != nil {
			s.logger.Warn("unmount failed", zap.String("mountpoint", mountPoint), zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	mountCmd.Flags().StringVar(&mountHierarchy, "hierarchy", "", "Comma separated annotations to group by")
	mountCmd.Flags().BoolVar(&useNFS, "nfs", false, "Serve over NFS instead of FUSE")
	mountCmd.Flags().StringVar(&nfsAddr, "nfs-addr", "", "NFS listen address (default ephemeral localhost port)")
	mountCmd.Flags().IntVar(&maxFiles, "max-files", graph.DefaultMaxFiles, "Most files listed per leaf directory")
	rootCmd.AddCommand(mountCmd)
}
