package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/fmsx/internal/ingest"
	"github.com/agentic-research/fmsx/internal/logging"
)

var (
	annotationsPath string
	filesPath       string
)

var buildCmd = &cobra.Command{
	Use:   "build <export.json> <output.db>",
	Short: "Build a local query database from a JSON export",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		output := args[1]

		exp, err := ingest.ReadExport(source, annotationsPath, filesPath)
		if err != nil {
			return err
		}

		start := time.Now()
		fmt.Fprintf(cmd.OutOrStdout(), "Building %s from %s...\n", output, source)
		sum, err := ingest.Build(exp, output, logging.WithContext(cmd.Context()))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d annotations and %d files in %v.\n",
			sum.Annotations, sum.Files, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&annotationsPath, "annotations-path", ingest.DefaultAnnotationsPath, "JSONPath selecting annotation definitions")
	buildCmd.Flags().StringVar(&filesPath, "files-path", ingest.DefaultFilesPath, "JSONPath selecting file records")
	rootCmd.AddCommand(buildCmd)
}
