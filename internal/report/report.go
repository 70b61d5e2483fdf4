package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/beacon/internal/storage"
)

// Summary aggregates the archived fetch records of the scrape stage. It gives
// an operator a quick read on source health: how many pages fail, which hosts
// block, how much text actually reaches the synthesizer.
type Summary struct {
	TotalFetches    int
	TotalErrors     int
	TotalDetections int
	EmptyText       int
	StatusCodes     map[int]int
	DetectionsBySrc map[string]int
	TotalBytes      int64
	TotalTextChars  int64
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// GenerateSummary aggregates a set of fetch records.
func GenerateSummary(records []*storage.FetchRecord) Summary {
	s := Summary{
		StatusCodes:     make(map[int]int),
		DetectionsBySrc: make(map[string]int),
	}

	if len(records) == 0 {
		return s
	}

	s.StartTime = records[0].CreatedAt
	s.EndTime = records[0].CreatedAt

	for _, r := range records {
		s.TotalFetches++
		if r.Error != "" {
			s.TotalErrors++
		}
		if r.DetectedBot {
			s.TotalDetections++
			s.DetectionsBySrc[r.DetectionSrc]++
		}
		if r.StatusCode > 0 {
			s.StatusCodes[r.StatusCode]++
		}
		if r.Text == "" {
			s.EmptyText++
		}
		s.TotalBytes += int64(len(r.Body))
		s.TotalTextChars += int64(len(r.Text))

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Beacon Fetch Archive Summary
----------------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Total Fetch:   {{.TotalFetches}} requests
Total Bytes:   {{.TotalBytes}} bytes
Total Text:    {{.TotalTextChars}} chars
Empty Text:    {{.EmptyText}}
Total Errors:  {{.TotalErrors}}

Status Codes:
{{- range $code, $count := .StatusCodes}}
  {{$code}}: {{$count}}
{{- else}}
  None
{{- end}}

Detections: {{.TotalDetections}}
{{- range $src, $count := .DetectionsBySrc}}
  {{$src}}: {{$count}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}

	return nil
}
