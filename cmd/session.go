package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/agentic-research/fmsx/internal/annotation"
	"github.com/agentic-research/fmsx/internal/explorer"
	"github.com/agentic-research/fmsx/internal/logging"
	"github.com/agentic-research/fmsx/internal/metrics"
	"github.com/agentic-research/fmsx/internal/query"
	"github.com/agentic-research/fmsx/internal/state"
)

// session is one connected explorer: a query service, the state store
// following it and the explorer following the store.
type session struct {
	svc     query.Service
	store   *state.Store
	ex      *explorer.Explorer
	logger  *zap.Logger
	closers []func() error
}

type sessionOptions struct {
	hierarchy   []string
	downloadDir string
}

// openSession connects to the configured service, loads annotations and
// applies the initial hierarchy.
func openSession(ctx context.Context, opts sessionOptions) (*session, error) {
	logger := logging.WithContext(ctx)
	s := &session{logger: logger}

	var downloader state.Downloader
	if cfg.Query.DB != "" {
		local, err := query.OpenLocal(cfg.Query.DB, logger.Named("local"))
		if err != nil {
			return nil, err
		}
		s.svc = local
		s.closers = append(s.closers, local.Close)
		downloader = query.NewLocalDownloader(local, opts.downloadDir)
	} else {
		client := query.New(query.Config{
			BaseURL: cfg.Query.BaseURL,
			Timeout: cfg.Query.Timeout,
			Logger:  logger.Named("client"),
		})
		s.svc = client
		downloader = query.NewDownloader(client, opts.downloadDir)
	}

	s.store = state.NewStore(state.Initial(),
		state.WithLogger(logger.Named("state")),
		state.WithEffects(&state.Effects{
			Annotations:  s.svc,
			Downloader:   downloader,
			DisplayCount: cfg.Explorer.DisplayAnnotations,
			Logger:       logger.Named("effects"),
		}),
	)
	s.store.Dispatch(ctx, state.RequestAnnotations())
	s.store.WhenComplete()
	anns := s.store.State().Metadata.Annotations
	if len(anns) == 0 {
		_ = s.Close()
		return nil, errors.New("no annotations received from the query service")
	}

	if len(opts.hierarchy) > 0 {
		h, err := annotation.Resolve(anns, opts.hierarchy)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.store.Dispatch(ctx, state.SetAnnotationHierarchy(h))
	}

	s.ex = explorer.New(s.store, s.svc, explorer.Options{
		Debounce:          cfg.Explorer.Debounce,
		DefaultTotalCount: cfg.Explorer.DefaultTotalCount,
		Layout:            cfg.Layout,
		Logger:            logger.Named("explorer"),
	})
	s.closers = append(s.closers, func() error { s.ex.Close(); return nil })

	if cfg.Metrics.Listen != "" {
		mctx, cancel := context.WithCancel(ctx)
		go func() {
			if err := metrics.Serve(mctx, cfg.Metrics.Listen); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		s.closers = append(s.closers, func() error { cancel(); return nil })
	}
	return s, nil
}

// Close releases everything in reverse order of acquisition.
func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// splitList parses a comma separated flag value.
func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInts(v []string) ([]int, error) {
	out := make([]int, 0, len(v))
	for _, s := range v {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid node index %q", s)
		}
		out = append(out, n)
	}
	return out, nil
}
