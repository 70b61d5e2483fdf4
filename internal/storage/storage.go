package storage

import (
	"context"
	"time"
)

// FetchRecord captures everything we know about one page fetch performed on
// behalf of a search, including the cleaned text handed to the synthesizer.
// Error is non-empty when the fetch failed before an HTTP response; the
// pipeline treats such records as pages with no usable text, never as a
// pipeline failure.
type FetchRecord struct {
	ID           string
	URL          string
	StatusCode   int
	Headers      map[string][]string
	Body         []byte
	Text         string // extracted body text, already normalized and truncated
	Duration     time.Duration
	DetectedBot  bool
	DetectionSrc string // e.g. "Cloudflare", "Akamai", "PerimeterX", "DataDome"
	CreatedAt    time.Time
	Error        string
}

// Filter allows querying archived fetch records.
type Filter struct {
	URL         string
	DetectedBot *bool
	Since       *time.Time
	Limit       int
	Offset      int
}

// Backend defines the interface for archiving and querying fetch records.
// Archiving is optional; the pipeline works without a backend.
type Backend interface {
	Save(ctx context.Context, record *FetchRecord) error
	Query(ctx context.Context, filter Filter) ([]*FetchRecord, error)
	Close() error
}
