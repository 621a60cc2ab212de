package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentic-research/fmsx/internal/config"
	"github.com/agentic-research/fmsx/internal/logging"
)

// Version is stamped at build time.
var Version = "dev"

var (
	configPath string
	baseURL    string
	dbPath     string
	logLevel   string
	logFormat  string

	cfg *config.Config
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to config file (default ~/.fmsx/fmsx.hcl)")
	pf.StringVar(&baseURL, "url", "", "Query service base URL")
	pf.StringVar(&dbPath, "db", "", "Query a local database built by 'fmsx build' instead of the service")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "Log format (console, json)")
}

var rootCmd = &cobra.Command{
	Use:           "fmsx",
	Short:         "Browse a file management service by annotation",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		c.ApplyEnv(os.Getenv)
		if baseURL != "" {
			c.Query.BaseURL = baseURL
		}
		if dbPath != "" {
			c.Query.DB = dbPath
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if logFormat != "" {
			c.Log.Format = logFormat
		}
		if err := logging.Init(c.Log); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(logging.IntoContext(ctx, logging.Named(cmd.Name())))
		cfg = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel its context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
