package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

func TestFetcherDocumentSendsUserAgent(t *testing.T) {
	t.Parallel()

	agents := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<html><body><h1 class="title">Hello</h1></body></html>`))
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), Options{UserAgent: "digest-test/1.0"})
	doc, err := f.Document(context.Background(), server.URL+"/page")
	require.NoError(t, err)

	assert.Equal(t, "digest-test/1.0", <-agents)
	assert.Equal(t, "Hello", doc.Find("h1.title").Text())
}

func TestFetcherNonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), Options{})
	_, err := f.Document(context.Background(), server.URL)
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusGone, fetchErr.StatusCode)
}

func TestFetcherNetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	f := NewFetcher(nil, Options{Timeout: time.Second})
	_, err := f.Bytes(context.Background(), addr)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Zero(t, fetchErr.StatusCode)
}

func TestFetcherHonoursContextDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewFetcher(server.Client(), Options{})
	_, err := f.Document(ctx, server.URL)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetcherRobotsDisallow(t *testing.T) {
	t.Parallel()

	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		pageHits.Add(1)
		_, _ = w.Write([]byte("<p>ok</p>"))
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), Options{RespectRobots: true})

	_, err := f.Document(context.Background(), server.URL+"/private/story")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisallowed)

	_, err = f.Document(context.Background(), server.URL+"/public/story")
	require.NoError(t, err)
	assert.Equal(t, int32(1), pageHits.Load())
}

func TestReadableText(t *testing.T) {
	t.Parallel()

	paragraph := strings.Repeat("The committee published its findings on battery recycling and grid storage. ", 8)
	html := `<html><head><title>Grid storage</title></head><body>
	<nav><a href="/">Home</a><a href="/world">World</a></nav>
	<article>
	  <h1>Grid storage report</h1>
	  <p>` + paragraph + `</p>
	  <p>` + paragraph + `</p>
	  <p>Researchers expect the first plants to open next year.</p>
	</article>
	<footer>Copyright</footer>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	text, err := ReadableText(doc, "https://example.com/grid")
	require.NoError(t, err)
	assert.Contains(t, text, "battery recycling")
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"/world/story":                "https://www.cnn.com/world/story",
		"https://other.org/a#section": "https://other.org/a",
		"#top":                        "",
		"javascript:void(0)":          "",
		"item?id=42":                  "https://www.cnn.com/world/item?id=42",
	}
	for href, want := range cases {
		assert.Equal(t, want, ResolveURL("https://www.cnn.com/world/", href), href)
	}
}

func TestParseTimeAndTruncate(t *testing.T) {
	t.Parallel()

	ts, ok := ParseTime("2025-04-22T08:30:00+00:00")
	require.True(t, ok)
	assert.Equal(t, 2025, ts.Year())

	_, ok = ParseTime("yesterday")
	assert.False(t, ok)

	assert.Equal(t, "héllo…", Truncate("héllo world", 5))
	assert.Equal(t, "short", Truncate("short", 10))
}
