package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/beacon/internal/storage"
)

func sampleRecords() []*storage.FetchRecord {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return []*storage.FetchRecord{
		{
			URL:        "https://a.example",
			StatusCode: 200,
			Body:       []byte("<html>alpha</html>"),
			Text:       "alpha",
			CreatedAt:  base,
		},
		{
			URL:          "https://b.example",
			StatusCode:   403,
			Body:         []byte("blocked"),
			DetectedBot:  true,
			DetectionSrc: "Cloudflare",
			CreatedAt:    base.Add(2 * time.Second),
		},
		{
			URL:       "https://c.example",
			Error:     "request failed: timeout",
			CreatedAt: base.Add(5 * time.Second),
		},
	}
}

func TestGenerateSummary(t *testing.T) {
	s := GenerateSummary(sampleRecords())

	if s.TotalFetches != 3 {
		t.Errorf("expected 3 fetches, got %d", s.TotalFetches)
	}
	if s.TotalErrors != 1 {
		t.Errorf("expected 1 error, got %d", s.TotalErrors)
	}
	if s.TotalDetections != 1 || s.DetectionsBySrc["Cloudflare"] != 1 {
		t.Errorf("expected one cloudflare detection, got %d (%v)", s.TotalDetections, s.DetectionsBySrc)
	}
	if s.StatusCodes[200] != 1 || s.StatusCodes[403] != 1 {
		t.Errorf("unexpected status code counts: %v", s.StatusCodes)
	}
	if s.EmptyText != 2 {
		t.Errorf("expected 2 records without text, got %d", s.EmptyText)
	}
	if s.TotalTextChars != int64(len("alpha")) {
		t.Errorf("unexpected text chars: %d", s.TotalTextChars)
	}
	if s.Duration != 5*time.Second {
		t.Errorf("expected 5s duration, got %v", s.Duration)
	}
}

func TestGenerateSummary_Empty(t *testing.T) {
	s := GenerateSummary(nil)
	if s.TotalFetches != 0 || s.Duration != 0 {
		t.Errorf("empty input should produce a zero summary, got %+v", s)
	}
	if s.StatusCodes == nil || s.DetectionsBySrc == nil {
		t.Error("maps should be initialized even for empty input")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, GenerateSummary(sampleRecords())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded Summary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.TotalFetches != 3 {
		t.Errorf("round-tripped summary lost data: %+v", decoded)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, GenerateSummary(sampleRecords())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Total Fetch:   3 requests",
		"Total Errors:  1",
		"Cloudflare: 1",
		"403: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}
