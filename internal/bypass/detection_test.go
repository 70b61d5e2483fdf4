package bypass

import (
	"net/http"
	"testing"

	"github.com/FranksOps/beacon/internal/storage"
)

func TestAnalyze_Cloudflare(t *testing.T) {
	rec := &storage.FetchRecord{
		StatusCode: http.StatusForbidden,
		Headers:    map[string][]string{"Server": {"cloudflare"}},
	}

	if !Analyze(rec, DefaultDetectors()) {
		t.Fatal("expected cloudflare detection")
	}
	if rec.DetectionSrc != "Cloudflare" {
		t.Errorf("expected Cloudflare source, got %q", rec.DetectionSrc)
	}
}

func TestAnalyze_CloudflareBodySignature(t *testing.T) {
	rec := &storage.FetchRecord{
		StatusCode: http.StatusServiceUnavailable,
		Headers:    map[string][]string{},
		Body:       []byte(`<html><body>cf-browser-verification</body></html>`),
	}

	if !Analyze(rec, DefaultDetectors()) {
		t.Fatal("expected detection from body signature")
	}
}

func TestAnalyze_DataDomeHeader(t *testing.T) {
	rec := &storage.FetchRecord{
		StatusCode: http.StatusForbidden,
		Headers:    map[string][]string{"X-DataDome": {"protected"}},
	}

	if !Analyze(rec, DefaultDetectors()) {
		t.Fatal("expected datadome detection")
	}
	if rec.DetectionSrc != "DataDome" {
		t.Errorf("expected DataDome source, got %q", rec.DetectionSrc)
	}
}

func TestAnalyze_CleanResponse(t *testing.T) {
	rec := &storage.FetchRecord{
		StatusCode: http.StatusOK,
		Headers:    map[string][]string{"Server": {"nginx"}},
		Body:       []byte(`<html><body>normal page</body></html>`),
	}

	if Analyze(rec, DefaultDetectors()) {
		t.Fatalf("expected no detection, got %s", rec.DetectionSrc)
	}
	if rec.DetectedBot {
		t.Error("DetectedBot should be false")
	}
}

func TestAnalyze_CaseInsensitiveHeaders(t *testing.T) {
	rec := &storage.FetchRecord{
		StatusCode: http.StatusForbidden,
		Headers:    map[string][]string{"server": {"Cloudflare"}},
	}

	if !Analyze(rec, DefaultDetectors()) {
		t.Fatal("expected detection with lowercase header key")
	}
}

func TestAnalyze_NilRecord(t *testing.T) {
	if Analyze(nil, DefaultDetectors()) {
		t.Fatal("nil record should never detect")
	}
}
