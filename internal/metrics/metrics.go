package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/FranksOps/beacon/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_search_requests_total",
			Help: "Total number of search pipeline invocations",
		},
		[]string{"outcome"}, // success, search_error, synthesis_error
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beacon_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"}, // search, scrape, context, synthesize
	)

	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_fetch_requests_total",
			Help: "Total number of page fetches executed for context gathering",
		},
		[]string{"domain", "status", "detected", "detection_src"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beacon_fetch_duration_seconds",
			Help:    "Duration of page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"domain"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_fetch_bytes_total",
			Help: "Total bytes downloaded across all page fetches",
		},
		[]string{"domain"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"outcome"}, // hit, miss, error
	)

	UnknownCitationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_unknown_citations_total",
			Help: "Citations returned by the model that were not among the scraped sources",
		},
	)
)

// RecordFetch updates the per-fetch metrics given a FetchRecord and domain.
func RecordFetch(domain string, rec *storage.FetchRecord) {
	if rec == nil {
		return
	}

	detectedStr := "false"
	if rec.DetectedBot {
		detectedStr = "true"
	}

	statusStr := strconv.Itoa(rec.StatusCode)
	if rec.Error != "" {
		statusStr = "error"
	}

	FetchRequestsTotal.WithLabelValues(domain, statusStr, detectedStr, rec.DetectionSrc).Inc()
	FetchDuration.WithLabelValues(domain).Observe(rec.Duration.Seconds())
	FetchBytesTotal.WithLabelValues(domain).Add(float64(len(rec.Body)))
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
