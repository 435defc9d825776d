package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

const goBlogFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
  <title>The Go Blog</title>
  <item>
    <title>Go 1.25 is released</title>
    <link>/blog/go1.25</link>
    <description>&lt;p&gt;Today the Go team is &lt;b&gt;happy&lt;/b&gt; to announce Go 1.25.&lt;/p&gt;</description>
    <pubDate>Tue, 12 Aug 2025 10:00:00 +0000</pubDate>
    <guid>go125</guid>
    <category>release</category>
  </item>
  <item>
    <title></title>
    <link>/blog/untitled</link>
  </item>
</channel></rss>`

func TestFeedListArticles(t *testing.T) {
	t.Parallel()

	server := pages(t, map[string]string{"/feed.xml": goBlogFeed})
	src, err := NewFeed("go-blog", testFetcher(server), nil, Endpoint{
		Categories: []Category{{Name: "golang", URL: server.URL + "/feed.xml"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "golang"}, src.Categories())

	headlines, err := src.ListArticles(context.Background(), "default")
	require.NoError(t, err)
	require.Len(t, headlines, 1)

	h := headlines[0]
	assert.Equal(t, "Go 1.25 is released", h.Title)
	assert.Equal(t, server.URL+"/blog/go1.25", h.URL)
	assert.Equal(t, "Today the Go team is happy to announce Go 1.25.", h.Description)
	assert.Equal(t, 2025, h.PublishedAt.Year())
	assert.Equal(t, "The Go Blog", h.Metadata["feed"])
	assert.Equal(t, "release", h.Metadata["tags"])
}

func TestFeedFetchWithContentSelector(t *testing.T) {
	t.Parallel()

	server := pages(t, map[string]string{"/blog/go1.25": `<html><body>
	  <nav><p>Docs</p></nav>
	  <div class="Article"><p>Go 1.25 ships a container-aware GOMAXPROCS.</p><p>Download it today.</p></div>
	</body></html>`})
	src, err := NewFeed("go-blog", testFetcher(server), nil, Endpoint{
		BaseURL:    server.URL,
		Categories: []Category{{Name: "default", URL: "/feed.xml"}},
		Options:    map[string]string{"content_selector": "div.Article p"},
	})
	require.NoError(t, err)

	article, err := src.FetchFullArticle(context.Background(), domain.Headline{Title: "Go 1.25", URL: server.URL + "/blog/go1.25"})
	require.NoError(t, err)
	assert.Equal(t, "Go 1.25 ships a container-aware GOMAXPROCS.\n\nDownload it today.", article.Content)
}

func TestFeedMalformed(t *testing.T) {
	t.Parallel()

	server := pages(t, map[string]string{"/feed.xml": "this is not a feed"})
	src, err := NewFeed("broken", testFetcher(server), nil, Endpoint{
		Categories: []Category{{Name: "default", URL: server.URL + "/feed.xml"}},
	})
	require.NoError(t, err)

	_, err = src.ListArticles(context.Background(), "default")
	var parseErr *domain.ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestNewFeedNeedsCategories(t *testing.T) {
	t.Parallel()

	_, err := NewFeed("empty", nil, nil, Endpoint{})
	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "empty", cfgErr.SourceID)
}
