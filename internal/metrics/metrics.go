// Package metrics provides Prometheus metrics for tidyup daemons.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// Organize metrics
	filesMovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidyup_files_moved_total",
			Help: "Total number of files moved into category folders",
		},
		[]string{"category"},
	)

	filesSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tidyup_files_skipped_total",
			Help: "Total number of files left in place",
		},
	)

	moveErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tidyup_move_errors_total",
			Help: "Total number of files that failed to move",
		},
	)

	runsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tidyup_runs_total",
			Help: "Total number of recorded organize runs",
		},
	)

	// Undo metrics
	undoTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidyup_undo_total",
			Help: "Total undo attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Scan metrics
	scanItemsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tidyup_scan_items_total",
			Help: "Total filesystem items visited by scans",
		},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tidyup_scan_duration_seconds",
			Help:    "Scan duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Undo outcomes.
const (
	UndoComplete = "complete"
	UndoPartial  = "partial"
	UndoNothing  = "nothing"
	UndoFailed   = "failed"
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordMove records one file moved into category.
func RecordMove(category string) {
	filesMovedTotal.WithLabelValues(category).Inc()
}

// RecordSkip records one skipped file.
func RecordSkip() {
	filesSkippedTotal.Inc()
}

// RecordMoveError records one failed move.
func RecordMoveError() {
	moveErrorsTotal.Inc()
}

// RecordRun records one persisted organize run.
func RecordRun() {
	runsTotal.Inc()
}

// RecordUndo records an undo attempt.
func RecordUndo(outcome string) {
	undoTotal.WithLabelValues(outcome).Inc()
}

// RecordScan records a finished scan.
func RecordScan(items int, duration time.Duration) {
	scanItemsTotal.Add(float64(items))
	scanDuration.Observe(duration.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
