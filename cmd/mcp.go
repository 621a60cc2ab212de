package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/fmsx/internal/mcpserver"
)

var mcpHierarchy string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve explorer tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), sessionOptions{hierarchy: splitList(mcpHierarchy)})
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		srv := mcpserver.New(s.store, s.ex, Version, s.logger.Named("mcp"))
		return srv.ServeStdio()
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHierarchy, "hierarchy", "", "Initial comma separated hierarchy")
	rootCmd.AddCommand(mcpCmd)
}
