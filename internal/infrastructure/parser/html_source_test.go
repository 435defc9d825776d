package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/web"
)

// pages serves fixed bodies by path and 404s everything else.
func pages(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func testFetcher(server *httptest.Server) *web.Fetcher {
	return web.NewFetcher(server.Client(), web.Options{})
}

const techCrunchListing = `<html><body><ul>
  <li class="wp-block-post">
    <div class="loop-card__cat-group"><a class="loop-card__cat" href="/category/ai">AI</a></div>
    <h3 class="loop-card__title"><a class="loop-card__title-link" href="/2025/04/22/robots-learn/">Robots learn to fold laundry</a></h3>
    <figure class="loop-card__figure"><img src="https://img.test/robot.jpg"></figure>
    <time datetime="2025-04-22T08:30:00-07:00">2 hours ago</time>
  </li>
  <li class="wp-block-post">
    <h3 class="loop-card__title"><a class="loop-card__title-link" href="/2025/04/22/robots-learn/">Robots learn to fold laundry</a></h3>
  </li>
  <li class="wp-block-post">
    <h3 class="loop-card__title"><a class="loop-card__title-link" href="">No link here</a></h3>
  </li>
  <li class="wp-block-post"><span>sponsored</span></li>
</ul></body></html>`

func TestTechCrunchListArticles(t *testing.T) {
	t.Parallel()

	server := pages(t, map[string]string{"/category/artificial-intelligence": techCrunchListing})
	src := NewTechCrunch(testFetcher(server), nil, Endpoint{BaseURL: server.URL})

	headlines, err := src.ListArticles(context.Background(), "AI")
	require.NoError(t, err)
	require.Len(t, headlines, 1)

	h := headlines[0]
	assert.Equal(t, "Robots learn to fold laundry", h.Title)
	assert.Equal(t, server.URL+"/2025/04/22/robots-learn/", h.URL)
	assert.Equal(t, "https://img.test/robot.jpg", h.ImageURL)
	assert.Equal(t, "AI", h.Metadata["section"])
	assert.Equal(t, 2025, h.PublishedAt.Year())
}

func TestTechCrunchFetchFullArticle(t *testing.T) {
	t.Parallel()

	server := pages(t, map[string]string{"/2025/04/22/robots-learn/": `<html><head>
	  <meta name="author" content="Kyle Wiggers">
	</head><body>
	  <p id="speakable-summary">Robots now fold laundry.</p>
	  <div class="entry-content">
	    <p>A startup showed a robot folding towels.</p>
	    <script>track()</script>
	    <p>It took four minutes per towel.</p>
	  </div>
	</body></html>`})
	src := NewTechCrunch(testFetcher(server), nil, Endpoint{BaseURL: server.URL})

	headline := domain.Headline{
		SourceID: "techcrunch",
		Title:    "Robots learn to fold laundry",
		URL:      server.URL + "/2025/04/22/robots-learn/",
		Category: "ai",
	}
	article, err := src.FetchFullArticle(context.Background(), headline)
	require.NoError(t, err)

	assert.Equal(t, headline, article.Headline)
	assert.Equal(t, "A startup showed a robot folding towels.\n\nIt took four minutes per towel.", article.Content)
	assert.Equal(t, "Kyle Wiggers", article.Byline)
	assert.Equal(t, "Robots now fold laundry.", article.Extra["summary"])
}

func TestHTMLSourceUnsupportedCategory(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	src := NewCNN(testFetcher(server), nil, Endpoint{BaseURL: server.URL})
	headlines, err := src.ListArticles(context.Background(), "sports")

	require.NoError(t, err)
	assert.NotNil(t, headlines)
	assert.Empty(t, headlines)
	assert.Zero(t, hits.Load())
}

func TestHTMLSourceListingFailure(t *testing.T) {
	t.Parallel()

	server := pages(t, map[string]string{})
	src := NewCNN(testFetcher(server), nil, Endpoint{BaseURL: server.URL})

	_, err := src.ListArticles(context.Background(), "world")

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestHTMLSourceMissingContentIsParseError(t *testing.T) {
	t.Parallel()

	server := pages(t, map[string]string{"/empty": `<html><body></body></html>`})
	src := NewTechCrunch(testFetcher(server), nil, Endpoint{BaseURL: server.URL})

	_, err := src.FetchFullArticle(context.Background(), domain.Headline{Title: "T", URL: server.URL + "/empty"})

	var parseErr *domain.ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestHTMLSourceReadabilityFallback(t *testing.T) {
	t.Parallel()

	paragraph := strings.Repeat("Engineers rebuilt the storage layer to cut tail latency in half. ", 8)
	server := pages(t, map[string]string{"/redesigned": `<html><head><title>Storage</title></head><body>
	  <main><article><h1>Storage rebuild</h1><p>` + paragraph + `</p><p>` + paragraph + `</p></article></main>
	</body></html>`})
	src := NewTechCrunch(testFetcher(server), nil, Endpoint{BaseURL: server.URL})

	article, err := src.FetchFullArticle(context.Background(), domain.Headline{Title: "Storage", URL: server.URL + "/redesigned"})
	require.NoError(t, err)
	assert.Contains(t, article.Content, "tail latency")
}

func TestMergeCategories(t *testing.T) {
	t.Parallel()

	urls, order := mergeCategories(
		[]Category{{Name: "world", URL: "/world"}, {Name: "US", URL: "/us"}},
		[]Category{{Name: "Science", URL: "/science"}, {Name: "world", URL: "/world/europe"}, {Name: "", URL: "/x"}},
	)

	assert.Equal(t, []string{"default", "world", "us", "science"}, order)
	assert.Equal(t, "/world/europe", urls["world"])
	assert.Equal(t, "/world/europe", urls["default"])
	assert.Len(t, urls, 4)
}
