package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/beacon/pkg/httpclient"
)

const (
	// DefaultBaseURL is the SerpAPI endpoint.
	DefaultBaseURL = "https://serpapi.com/search.json"
	// DefaultLocation biases organic results when none is configured.
	DefaultLocation = "Austin, Texas"
	// MaxRelatedQuestions caps the related questions returned per query.
	MaxRelatedQuestions = 5
)

// SerpAPIConfig configures the SerpAPI-backed provider.
type SerpAPIConfig struct {
	APIKey string
	// Location to pass with every search. Defaults to DefaultLocation.
	Location string
	// BaseURL overrides the SerpAPI endpoint, mainly for tests.
	BaseURL string
	// Timeout for a single search call. Defaults to httpclient.DefaultTimeout.
	Timeout time.Duration
}

// SerpAPI queries Google through SerpAPI.
type SerpAPI struct {
	cfg    SerpAPIConfig
	client *httpclient.Client
	logger *slog.Logger
}

var _ Provider = (*SerpAPI)(nil)

// NewSerpAPI creates a SerpAPI provider.
func NewSerpAPI(cfg SerpAPIConfig, logger *slog.Logger) (*SerpAPI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serpapi api key is required")
	}
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	return &SerpAPI{cfg: cfg, client: client, logger: logger}, nil
}

// serpResponse mirrors the slice of the SerpAPI payload we consume. Provider
// fields beyond link and query are ignored.
type serpResponse struct {
	OrganicResults []struct {
		Link string `json:"link"`
	} `json:"organic_results"`
	RelatedSearches []struct {
		Query string `json:"query"`
	} `json:"related_searches"`
	Error string `json:"error"`
}

// Search runs a Google search for the query and returns organic links plus up
// to five related questions, both in provider order. Any failure is returned
// as a *ProviderError.
func (s *SerpAPI) Search(ctx context.Context, query string) (*Results, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("location", s.cfg.Location)
	params.Set("api_key", s.cfg.APIKey)

	reqURL := s.cfg.BaseURL + "?" + params.Encode()

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &ProviderError{Provider: "serpapi", Err: fmt.Errorf("build request: %w", err)}
	}

	start := time.Now()
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, &ProviderError{Provider: "serpapi", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: "serpapi", Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: "serpapi",
			Err:      fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncateBody(body)),
		}
	}

	var parsed serpResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ProviderError{Provider: "serpapi", Err: fmt.Errorf("decode response: %w", err)}
	}
	if parsed.Error != "" {
		return nil, &ProviderError{Provider: "serpapi", Err: fmt.Errorf("api error: %s", parsed.Error)}
	}

	results := &Results{}
	for _, r := range parsed.OrganicResults {
		if r.Link != "" {
			results.Links = append(results.Links, r.Link)
		}
	}
	for _, r := range parsed.RelatedSearches {
		if len(results.RelatedQuestions) >= MaxRelatedQuestions {
			break
		}
		if r.Query != "" {
			results.RelatedQuestions = append(results.RelatedQuestions, r.Query)
		}
	}

	s.logger.Debug("search completed",
		"query", query,
		"links", len(results.Links),
		"related", len(results.RelatedQuestions),
		"duration", time.Since(start))

	return results, nil
}

func truncateBody(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
