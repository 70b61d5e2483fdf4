package serp

import (
	"context"
	"fmt"
)

// Results is what a search provider returns for a query: organic result links
// in provider order, and up to five related questions.
type Results struct {
	Links            []string `json:"links"`
	RelatedQuestions []string `json:"relatedQuestions"`
}

// Provider abstracts a search engine backend. Implementations may use official
// APIs or scraping; the pipeline only depends on this interface.
type Provider interface {
	Search(ctx context.Context, query string) (*Results, error)
}

// ProviderError wraps any failure while talking to the search provider. The
// pipeline treats it as fatal: without search results there is nothing to
// scrape or synthesize.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("search provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
