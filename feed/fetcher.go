package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// Fetcher downloads and parses a single feed with conditional GET.
type Fetcher struct {
	url       string
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
	logger    *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout sets the per-request timeout. Default is 10 seconds.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithFetcherLogger sets a custom logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
	}
}

// NewFetcher creates a fetcher for url.
func NewFetcher(url string, opts ...FetcherOption) (*Fetcher, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	f := &Fetcher{
		url:       url,
		client:    &http.Client{Timeout: 10 * time.Second},
		parser:    gofeed.NewParser(),
		userAgent: "khabar/1.0",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "feed-fetcher", "url", url)
	return f, nil
}

// URL returns the feed address.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch downloads the feed. It sends the validators stored in state and
// returns ErrNotModified on HTTP 304. A full response updates the
// validators in state.
func (f *Fetcher) Fetch(ctx context.Context, state *State) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	etag, lastModified := state.Validators()
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		f.logger.Debug("feed not modified")
		return nil, ErrNotModified
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	state.SetValidators(resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"))
	f.logger.Debug("fetched feed", "entries", len(parsed.Items), "status", resp.StatusCode)
	return parsed, nil
}
