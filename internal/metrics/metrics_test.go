package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/beacon/internal/storage"
)

func TestMetricsServer(t *testing.T) {
	srv := Start(8888)
	// Give it a tiny bit of time to start up
	time.Sleep(100 * time.Millisecond)

	defer srv.Stop(context.Background())

	// Record a fetch to verify metrics format correctly
	rec := &storage.FetchRecord{
		StatusCode: 200,
		Body:       []byte("hello world"), // 11 bytes
		Duration:   1 * time.Second,
	}

	RecordFetch("example.com", rec)
	ObserveStage("serp", 200*time.Millisecond)
	SearchRequestsTotal.WithLabelValues("ok").Inc()

	resp, err := http.Get("http://localhost:8888/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	output := string(body)

	if !strings.Contains(output, "beacon_fetch_requests_total") {
		t.Errorf("expected beacon_fetch_requests_total metric")
	}

	if !strings.Contains(output, `beacon_stage_duration_seconds_bucket`) {
		t.Errorf("expected beacon_stage_duration_seconds metric")
	}

	if !strings.Contains(output, `beacon_fetch_bytes_total{domain="example.com"}`) {
		t.Errorf("expected beacon_fetch_bytes_total metric for example.com")
	}

	if !strings.Contains(output, `beacon_search_requests_total{outcome="ok"}`) {
		t.Errorf("expected beacon_search_requests_total metric")
	}
}
