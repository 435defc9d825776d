package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
)

const (
	// DefaultUserAgent mimics a desktop browser; several news sites reject bot agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultTimeout   = 20 * time.Second
	defaultMaxBody   = 8 << 20
)

// ErrDisallowed is wrapped by FetchError when robots.txt forbids a URL.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Options tune a Fetcher. Zero values fall back to defaults.
type Options struct {
	Timeout       time.Duration
	UserAgent     string
	RespectRobots bool
	MaxBodyBytes  int64
}

// Fetcher is the page retrieval layer shared by every source.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	robots    *robotsCache
}

// NewFetcher wires an HTTP client; a nil client gets one with opts.Timeout.
func NewFetcher(client *http.Client, opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	f := &Fetcher{client: client, userAgent: ua, maxBody: maxBody}
	if opts.RespectRobots {
		f.robots = newRobotsCache()
	}
	return f
}

// Client exposes the underlying HTTP client for collectors that drive their own requests.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// UserAgent returns the identity header sent with every request.
func (f *Fetcher) UserAgent() string {
	return f.userAgent
}

// Timeout returns the per-request bound, zero when the client has none.
func (f *Fetcher) Timeout() time.Duration {
	return f.client.Timeout
}

// Document GETs pageURL and parses the response as HTML.
func (f *Fetcher) Document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, &domain.ParseError{URL: pageURL, Reason: "parse document", Err: err}
	}
	return doc, nil
}

// Bytes GETs pageURL and returns the raw body, for feed and JSON endpoints.
func (f *Fetcher) Bytes(ctx context.Context, pageURL string) ([]byte, error) {
	resp, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, &domain.FetchError{URL: pageURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// Allowed checks robots.txt for pageURL. It always succeeds when robots checks are off.
func (f *Fetcher) Allowed(ctx context.Context, pageURL string) error {
	if f.robots == nil {
		return nil
	}
	ok, err := f.robots.allowed(ctx, f, pageURL)
	if err != nil {
		return &domain.FetchError{URL: pageURL, Err: err}
	}
	if !ok {
		return &domain.FetchError{URL: pageURL, Err: ErrDisallowed}
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, pageURL string) (*http.Response, error) {
	if err := f.Allowed(ctx, pageURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: pageURL, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: pageURL, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &domain.FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	return resp, nil
}
