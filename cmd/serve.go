package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentic-research/fmsx/internal/ingest"
	"github.com/agentic-research/fmsx/internal/logging"
	"github.com/agentic-research/fmsx/internal/query"
)

var (
	listenAddr string
	exportPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a local database or JSON export over the query service API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.WithContext(cmd.Context())

		var svc query.Service
		switch {
		case exportPath != "":
			exp, err := ingest.ReadExport(exportPath, "", "")
			if err != nil {
				return err
			}
			mem, err := query.NewMemoryService(exp)
			if err != nil {
				return err
			}
			svc = mem
		case cfg.Query.DB != "":
			local, err := query.OpenLocal(cfg.Query.DB, logger)
			if err != nil {
				return err
			}
			defer func() { _ = local.Close() }()
			svc = local
		default:
			return errors.New("serve needs --db or --export")
		}

		srv := &http.Server{
			Addr:              listenAddr,
			Handler:           query.NewHandler(svc, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		logger.Info("query service listening", zap.String("addr", listenAddr))
		fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s\n", listenAddr)

		select {
		case <-cmd.Context().Done():
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":9081", "Listen address")
	serveCmd.Flags().StringVar(&exportPath, "export", "", "Serve this JSON export from memory instead of --db")
	rootCmd.AddCommand(serveCmd)
}
