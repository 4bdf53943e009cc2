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
	// Messages listed by the fetcher, per category label
	MessagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_messages_fetched_total",
			Help: "Total number of message references listed from the mailbox",
		},
		[]string{"category"},
	)

	// Messages dropped from a scan, per pipeline stage
	MessagesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_messages_skipped_total",
			Help: "Total number of messages skipped during a scan",
		},
		[]string{"stage"}, // stage: extract, sender, classify
	)

	// Successful classifications, by source
	MessagesClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_messages_classified_total",
			Help: "Total number of messages classified",
		},
		[]string{"source"}, // source: model, cache
	)

	// Cooldowns taken because the model reported quota exhaustion
	RateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_rate_limit_waits_total",
			Help: "Total number of cooldowns taken after a rate-limit error",
		},
	)

	// Model call latency in seconds
	ClassificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_classification_duration_seconds",
			Help:    "Latency of a single classification attempt in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"status"},
	)

	// Reachability probes, by outcome
	URLProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_url_probes_total",
			Help: "Total number of URL reachability probes",
		},
		[]string{"result"}, // result: ok, unreachable, open_circuit
	)

	// Outbound data requests, by request type and outcome
	RequestsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_data_requests_sent_total",
			Help: "Total number of outbound data requests",
		},
		[]string{"type", "status"},
	)

	// Scan wall time in seconds
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inbox_scan_duration_seconds",
			Help:    "Duration of a full scan in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", zap.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
