package scraper

import (
	"context"
	"log/slog"

	"github.com/FranksOps/beacon/internal/storage"
	"github.com/FranksOps/beacon/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

// Page is one scraped source: the link it came from and the cleaned text
// extracted from it. Text is empty when the fetch or extraction failed; that
// is a valid state, not an error.
type Page struct {
	Link string `json:"link"`
	Text string `json:"text"`
}

// Config provides parameters for batch scraping.
type Config struct {
	// Concurrency caps the number of in-flight fetches. Defaults to 8.
	Concurrency int
	// Backend, when non-nil, archives every fetch record for diagnosis.
	Backend storage.Backend
	// RespectRobots specifies whether to check robots.txt before fetching.
	RespectRobots bool
	// UserAgent is the User-Agent string to use when checking robots.txt.
	UserAgent string
	// RequestsPerSecond limits the fetch rate (0 = unlimited).
	RequestsPerSecond float64
	// Jitter applies randomness to the rate limiter (0.0 to 1.0).
	Jitter float64
}

// Scraper fans a set of links out to concurrent fetch+extract tasks and fans
// the results back in. One task per link; a failing task degrades to an empty
// page and the batch always completes.
type Scraper struct {
	cfg     Config
	fetcher *Fetcher
	logger  *slog.Logger
	auditor *RobotsAuditor
	limiter *ratelimit.Limiter
}

// New creates a batch scraper around the given fetcher.
func New(cfg Config, fetcher *Fetcher, logger *slog.Logger) *Scraper {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "*" // default generic user-agent for robots.txt
	}

	var auditor *RobotsAuditor
	if cfg.RespectRobots {
		auditor = NewRobotsAuditor(fetcher, logger)
	}

	return &Scraper{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
		auditor: auditor,
		limiter: ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.Jitter),
	}
}

// Close releases the scraper's rate limiter.
func (s *Scraper) Close() {
	s.limiter.Stop()
}

// ScrapeAll fetches and extracts text from every link. The returned slice has
// the same length and order as the input regardless of individual outcomes;
// each element's Text is empty when that link failed. ScrapeAll returns only
// when every task has finished.
func (s *Scraper) ScrapeAll(ctx context.Context, links []string) []Page {
	pages := make([]Page, len(links))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, link := range links {
		g.Go(func() error {
			// Each task writes only to its own slot; no result is shared.
			pages[i] = s.scrapeOne(gCtx, link)
			return nil
		})
	}

	// Tasks never return errors, so this only waits for the barrier.
	_ = g.Wait()

	return pages
}

func (s *Scraper) scrapeOne(ctx context.Context, link string) Page {
	page := Page{Link: link}

	if s.auditor != nil {
		allowed, err := s.auditor.IsAllowed(ctx, link, s.cfg.UserAgent)
		if err != nil {
			s.logger.Warn("error checking robots.txt", "url", link, "err", err)
			// Fail open: an unreadable robots.txt should not cost us the source.
		} else if !allowed {
			s.logger.Debug("url blocked by robots.txt", "url", link)
			return page
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.Error("rate limiter cancelled", "url", link, "err", err)
		return page
	}

	s.logger.Debug("fetching", "url", link)

	record, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		// Fetcher returns a partial record even on hard errors.
		s.logger.Error("fetch error", "url", link, "err", err)
	}
	if record == nil {
		return page
	}

	if record.Error != "" {
		s.logger.Error("failed to fetch page", "url", link, "err", record.Error)
	} else if record.StatusCode < 200 || record.StatusCode > 299 {
		s.logger.Warn("non-2xx response", "url", link, "status", record.StatusCode, "detected", record.DetectionSrc)
	} else if len(record.Body) == 0 {
		s.logger.Warn("no content received", "url", link)
	} else {
		record.Text = ExtractText(record.Body)
		if record.Text == "" {
			s.logger.Warn("no text extracted", "url", link)
		}
		page.Text = record.Text
	}

	if s.cfg.Backend != nil {
		if err := s.cfg.Backend.Save(ctx, record); err != nil {
			s.logger.Error("failed to archive fetch record", "url", link, "err", err)
		}
	}

	return page
}
