package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/beacon/internal/bypass"
	"github.com/FranksOps/beacon/internal/fingerprint"
	"github.com/FranksOps/beacon/internal/metrics"
	"github.com/FranksOps/beacon/internal/storage"
	"github.com/FranksOps/beacon/pkg/httpclient"
	"github.com/FranksOps/beacon/pkg/proxy"
	"github.com/FranksOps/beacon/pkg/useragent"
	"github.com/google/uuid"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// DefaultFetchTimeout bounds a single page fetch. Slow sources are treated
// the same as unreachable ones: the page contributes no text.
const DefaultFetchTimeout = 10 * time.Second

// FetchConfig configures a single page fetch.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
}

// Fetcher performs single URL fetches using the configured evasion strategies.
// Fetch never returns a Go error for a bad page; failures are recorded on the
// FetchRecord so one dead link can never abort a batch.
type Fetcher struct {
	config    FetchConfig
	client    *httpclient.Client
	transport http.RoundTripper
}

// NewFetcher initializes a new Fetcher with the given configuration.
// By holding a single client across requests, cookie jars (if configured) persist for the lifetime of the Fetcher.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}

	// Create transport just once per fetcher to allow connection pooling and cookie jar reuse.
	// We inject a proxy function that reads from the request context to allow per-request proxy rotation.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		// http.Transport.Proxy expects nil url if no proxy should be used
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		// Skip env proxy for local addresses so system proxies don't break tests
		if req.URL.Host == "example.com" || req.URL.Hostname() == "127.0.0.1" {
			return nil, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Fetcher{
		config:    cfg,
		client:    client,
		transport: transport,
	}, nil
}

// Fetch executes a GET request to the target URL, tracking the duration and
// capturing the response into a storage.FetchRecord.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*storage.FetchRecord, error) {
	start := time.Now()

	record := &storage.FetchRecord{
		ID:        uuid.New().String(),
		URL:       targetURL,
		CreatedAt: start.UTC(),
	}

	// Rotate proxies per request via the request context; the transport's
	// proxy func reads the URL back out. Mutating Transport.Proxy directly
	// would race with concurrent fetches.
	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		activeProxy = f.config.ProxyPool.Next()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		record.Error = fmt.Sprintf("failed to create request: %v", err)
		record.Duration = time.Since(start)
		return record, nil
	}

	if activeProxy != nil {
		req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
	}

	// Browser-like headers; several sources reject Go's default agent outright.
	req.Header.Set("User-Agent", f.config.UAPool.GetSequential())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
		}
		record.Error = fmt.Sprintf("request failed: %v", err)
		record.Duration = time.Since(start)
		return record, nil
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		record.Error = fmt.Sprintf("failed to read body: %v", err)
	}

	record.StatusCode = resp.StatusCode
	record.Headers = resp.Header
	record.Body = body
	record.Duration = time.Since(start)

	// Run detection to identify if we were challenged
	bypass.Analyze(record, bypass.DefaultDetectors())

	if host := req.URL.Hostname(); host != "" {
		metrics.RecordFetch(host, record)
	}

	return record, nil
}
