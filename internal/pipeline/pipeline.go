// Package pipeline wires search, scraping, and synthesis into the
// query-to-answer flow.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/FranksOps/beacon/internal/analyzer"
	"github.com/FranksOps/beacon/internal/metrics"
	"github.com/FranksOps/beacon/internal/scraper"
	"github.com/FranksOps/beacon/internal/serp"
	"github.com/FranksOps/beacon/internal/synth"
)

// Result is the unit returned to the caller for one query.
type Result struct {
	Answer           string   `json:"answer"`
	Citations        []string `json:"citations"`
	RelatedQuestions []string `json:"relatedQuestions"`
}

// Runner executes one query end to end. The HTTP layer and the cache wrapper
// both depend on this interface rather than the concrete pipeline.
type Runner interface {
	Run(ctx context.Context, query string) (*Result, error)
}

// PageScraper is the slice of the scraper the pipeline needs.
type PageScraper interface {
	ScrapeAll(ctx context.Context, links []string) []scraper.Page
}

// Config provides pipeline assembly parameters.
type Config struct {
	// SearchTimeout bounds the search provider call (0 = inherit request
	// context only).
	SearchTimeout time.Duration
	// SynthTimeout bounds the synthesis call (0 = inherit request context
	// only).
	SynthTimeout time.Duration
}

// Pipeline runs query → search → scrape → context → synthesize.
type Pipeline struct {
	cfg      Config
	provider serp.Provider
	scraper  PageScraper
	synth    synth.Synthesizer
	logger   *slog.Logger
}

var _ Runner = (*Pipeline)(nil)

// New assembles a pipeline from its stages.
func New(cfg Config, provider serp.Provider, sc PageScraper, sy synth.Synthesizer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		provider: provider,
		scraper:  sc,
		synth:    sy,
		logger:   logger,
	}
}

// Run executes the full flow for one query. Search and synthesis failures are
// fatal and propagate typed; individual scrape failures degrade to empty
// sources and never fail the run.
func (p *Pipeline) Run(ctx context.Context, query string) (*Result, error) {
	results, err := p.search(ctx, query)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("search_error").Inc()
		return nil, err
	}

	p.logger.Info("search results",
		"query", query,
		"links", len(results.Links),
		"related", len(results.RelatedQuestions))

	start := time.Now()
	pages := p.scraper.ScrapeAll(ctx, results.Links)
	metrics.ObserveStage("scrape", time.Since(start))

	start = time.Now()
	sourceContext := synth.BuildContext(pages)
	metrics.ObserveStage("context", time.Since(start))

	answer, err := p.synthesize(ctx, query, sourceContext)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("synthesis_error").Inc()
		return nil, err
	}

	analyzer.AuditCitations(answer.Citations, pages).LogAndCount(p.logger)

	metrics.SearchRequestsTotal.WithLabelValues("success").Inc()

	return &Result{
		Answer:           answer.Answer,
		Citations:        answer.Citations,
		RelatedQuestions: results.RelatedQuestions,
	}, nil
}

func (p *Pipeline) search(ctx context.Context, query string) (*serp.Results, error) {
	if p.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.SearchTimeout)
		defer cancel()
	}

	start := time.Now()
	results, err := p.provider.Search(ctx, query)
	metrics.ObserveStage("search", time.Since(start))
	return results, err
}

func (p *Pipeline) synthesize(ctx context.Context, query, sourceContext string) (*synth.Answer, error) {
	if p.cfg.SynthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.SynthTimeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := p.synth.Synthesize(ctx, query, sourceContext)
	metrics.ObserveStage("synthesize", time.Since(start))
	return answer, err
}
