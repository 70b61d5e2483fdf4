package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/FranksOps/beacon/internal/scraper"
	"github.com/FranksOps/beacon/internal/serp"
	"github.com/FranksOps/beacon/internal/synth"
)

type fakeProvider struct {
	results *serp.Results
	err     error
	calls   int
}

func (f *fakeProvider) Search(ctx context.Context, query string) (*serp.Results, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeScraper struct {
	pages map[string]string
	calls int
}

func (f *fakeScraper) ScrapeAll(ctx context.Context, links []string) []scraper.Page {
	f.calls++
	pages := make([]scraper.Page, len(links))
	for i, link := range links {
		pages[i] = scraper.Page{Link: link, Text: f.pages[link]}
	}
	return pages
}

type fakeSynth struct {
	answer      *synth.Answer
	err         error
	calls       int
	lastQuery   string
	lastContext string
}

func (f *fakeSynth) Synthesize(ctx context.Context, query, sourceContext string) (*synth.Answer, error) {
	f.calls++
	f.lastQuery = query
	f.lastContext = sourceContext
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func TestPipeline_Run(t *testing.T) {
	provider := &fakeProvider{results: &serp.Results{
		Links:            []string{"https://a.example", "https://b.example"},
		RelatedQuestions: []string{"q1", "q2", "q3"},
	}}
	sc := &fakeScraper{pages: map[string]string{
		"https://a.example": "alpha content",
		"https://b.example": "beta content",
	}}
	sy := &fakeSynth{answer: &synth.Answer{
		Answer:    "synthesized answer",
		Citations: []string{"https://a.example", "https://b.example"},
	}}

	p := New(Config{}, provider, sc, sy, nil)

	res, err := p.Run(context.Background(), "best coffee in Austin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Answer != "synthesized answer" {
		t.Errorf("unexpected answer: %q", res.Answer)
	}
	if len(res.Citations) != 2 {
		t.Errorf("expected 2 citations, got %v", res.Citations)
	}
	if len(res.RelatedQuestions) != 3 {
		t.Errorf("expected 3 related questions, got %v", res.RelatedQuestions)
	}

	if sy.lastQuery != "best coffee in Austin" {
		t.Errorf("synthesizer got query %q", sy.lastQuery)
	}
	wantCtx := "Source: https://a.example\nContent: alpha content\n\nSource: https://b.example\nContent: beta content"
	if sy.lastContext != wantCtx {
		t.Errorf("synthesizer context:\n%q\nwant:\n%q", sy.lastContext, wantCtx)
	}
}

func TestPipeline_AllScrapesFailStillSynthesizes(t *testing.T) {
	provider := &fakeProvider{results: &serp.Results{
		Links:            []string{"https://a.example", "https://b.example"},
		RelatedQuestions: []string{"q1"},
	}}
	sc := &fakeScraper{pages: map[string]string{}} // every link scrapes empty
	sy := &fakeSynth{answer: &synth.Answer{Answer: "no sources available", Citations: []string{}}}

	p := New(Config{}, provider, sc, sy, nil)

	res, err := p.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sy.calls != 1 {
		t.Fatalf("synthesizer should still run, got %d calls", sy.calls)
	}
	if sy.lastContext != "" {
		t.Errorf("expected empty context, got %q", sy.lastContext)
	}
	if res.Answer != "no sources available" {
		t.Errorf("unexpected answer: %q", res.Answer)
	}
	if len(res.RelatedQuestions) != 1 {
		t.Errorf("related questions survive scrape failures, got %v", res.RelatedQuestions)
	}
}

func TestPipeline_SearchErrorShortCircuits(t *testing.T) {
	wantErr := &serp.ProviderError{Provider: "serpapi", Err: errors.New("boom")}
	provider := &fakeProvider{err: wantErr}
	sc := &fakeScraper{}
	sy := &fakeSynth{}

	p := New(Config{}, provider, sc, sy, nil)

	_, err := p.Run(context.Background(), "query")

	var perr *serp.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *serp.ProviderError, got %v", err)
	}
	if sc.calls != 0 {
		t.Errorf("scraper must not run after search failure, got %d calls", sc.calls)
	}
	if sy.calls != 0 {
		t.Errorf("synthesizer must not run after search failure, got %d calls", sy.calls)
	}
}

func TestPipeline_SynthesisErrorPropagates(t *testing.T) {
	provider := &fakeProvider{results: &serp.Results{Links: []string{"https://a.example"}}}
	sc := &fakeScraper{pages: map[string]string{"https://a.example": "text"}}
	sy := &fakeSynth{err: &synth.SynthesisError{Model: "test", Err: errors.New("refused")}}

	p := New(Config{}, provider, sc, sy, nil)

	_, err := p.Run(context.Background(), "query")

	var serr *synth.SynthesisError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *synth.SynthesisError, got %v", err)
	}
}

func TestPipeline_NoLinksStillRuns(t *testing.T) {
	provider := &fakeProvider{results: &serp.Results{RelatedQuestions: []string{"q1", "q2"}}}
	sc := &fakeScraper{}
	sy := &fakeSynth{answer: &synth.Answer{Answer: "answered from nothing", Citations: []string{}}}

	p := New(Config{}, provider, sc, sy, nil)

	res, err := p.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sy.lastContext != "" {
		t.Errorf("expected empty context, got %q", sy.lastContext)
	}
	if len(res.RelatedQuestions) != 2 {
		t.Errorf("unexpected related questions: %v", res.RelatedQuestions)
	}
}

func TestPipeline_Idempotent(t *testing.T) {
	provider := &fakeProvider{results: &serp.Results{
		Links:            []string{"https://a.example"},
		RelatedQuestions: []string{"q1"},
	}}
	sc := &fakeScraper{pages: map[string]string{"https://a.example": "text"}}
	sy := &fakeSynth{answer: &synth.Answer{Answer: "same", Citations: []string{"https://a.example"}}}

	p := New(Config{}, provider, sc, sy, nil)

	first, err := p.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Answer != second.Answer || len(first.Citations) != len(second.Citations) {
		t.Error("repeated runs with identical stage outputs should agree")
	}
	if provider.calls != 2 || sc.calls != 2 || sy.calls != 2 {
		t.Errorf("each run invokes every stage once: provider=%d scraper=%d synth=%d",
			provider.calls, sc.calls, sy.calls)
	}
}
