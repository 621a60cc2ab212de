// Package metrics provides Prometheus metrics for the explorer.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Range fetch metrics
	rangeFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fmsx_range_fetches_total",
			Help: "Total number of file range fetches by outcome",
		},
		[]string{"status"},
	)

	rangeFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fmsx_range_fetch_duration_seconds",
			Help:    "Time spent fetching one file range from the query service",
			Buckets: prometheus.DefBuckets,
		},
	)

	rangeFetchesDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fmsx_range_fetches_deduplicated_total",
			Help: "Range requests fully covered by cached or in-flight indices",
		},
	)

	staleResponsesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fmsx_stale_responses_discarded_total",
			Help: "Responses dropped because their file set was no longer current",
		},
	)

	// Query service metrics
	queryRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fmsx_query_requests_total",
			Help: "Total number of query service requests",
		},
		[]string{"endpoint", "status"},
	)

	// Tree metrics
	treeNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fmsx_tree_nodes",
			Help: "Number of nodes in the current file set tree",
		},
	)

	treeRebuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fmsx_tree_rebuilds_total",
			Help: "Number of times the file set tree was rebuilt",
		},
	)
)

// RecordRangeFetch records the outcome and latency of one range fetch.
func RecordRangeFetch(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	rangeFetchesTotal.WithLabelValues(status).Inc()
	rangeFetchDuration.Observe(d.Seconds())
}

// RecordDeduplicated counts a range request that issued no new fetch.
func RecordDeduplicated() {
	rangeFetchesDeduplicated.Inc()
}

// RecordStaleDiscard counts a response dropped by the staleness guard.
func RecordStaleDiscard() {
	staleResponsesDiscarded.Inc()
}

// RecordQuery counts one request to the query service.
func RecordQuery(endpoint string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	queryRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordTreeRebuild records a rebuild producing n nodes.
func RecordTreeRebuild(n int) {
	treeRebuildsTotal.Inc()
	treeNodes.Set(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
