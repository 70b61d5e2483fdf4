package analyzer

import (
	"log/slog"
	"strings"

	"github.com/FranksOps/beacon/internal/metrics"
	"github.com/FranksOps/beacon/internal/scraper"
)

// Audit compares the citations a synthesized answer claims against the
// sources that were actually scraped.
type Audit struct {
	// UnknownCitations are cited URLs that match none of the scraped links.
	// The model either invented them or pulled them from its own knowledge.
	UnknownCitations []string `json:"unknownCitations"`
	// UncitedSources are scraped links with text that the answer never cites.
	UncitedSources []string `json:"uncitedSources"`
}

// Clean reports whether every citation resolved to a scraped source.
func (a *Audit) Clean() bool {
	return len(a.UnknownCitations) == 0
}

// AuditCitations cross-checks citations against the scraped pages. URLs are
// compared after normalization so a trailing slash or scheme-case difference
// does not flag a genuine source.
func AuditCitations(citations []string, pages []scraper.Page) *Audit {
	known := make(map[string]string, len(pages))
	for _, p := range pages {
		if p.Text != "" {
			known[normalizeURL(p.Link)] = p.Link
		}
	}

	audit := &Audit{}
	cited := make(map[string]bool, len(citations))

	for _, c := range citations {
		norm := normalizeURL(c)
		if _, ok := known[norm]; ok {
			cited[norm] = true
		} else {
			audit.UnknownCitations = append(audit.UnknownCitations, c)
		}
	}

	for _, p := range pages {
		if p.Text == "" {
			continue
		}
		if !cited[normalizeURL(p.Link)] {
			audit.UncitedSources = append(audit.UncitedSources, p.Link)
		}
	}

	return audit
}

// LogAndCount records the audit outcome. Unknown citations are worth alerting
// on; they mean answers reference material nobody can verify.
func (a *Audit) LogAndCount(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(a.UnknownCitations) > 0 {
		metrics.UnknownCitationsTotal.Add(float64(len(a.UnknownCitations)))
		logger.Warn("answer cites unknown sources", "citations", a.UnknownCitations)
	}
	if len(a.UncitedSources) > 0 {
		logger.Debug("scraped sources left uncited", "sources", a.UncitedSources)
	}
}

// normalizeURL canonicalizes a URL for comparison: lowercased scheme and
// host, no trailing slash, no fragment.
func normalizeURL(raw string) string {
	s := strings.TrimSpace(raw)

	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, "/")

	// Lowercase only scheme://host, the path may be case-sensitive.
	if i := strings.Index(s, "://"); i >= 0 {
		rest := s[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			s = strings.ToLower(s[:i+3]+rest[:j]) + rest[j:]
		} else {
			s = strings.ToLower(s)
		}
	}

	return s
}
