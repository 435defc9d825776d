package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/web"
	"NewsDigest/internal/scraper"
)

const hackerNewsBaseURL = "https://news.ycombinator.com"

var hackerNewsCategories = []Category{
	{Name: "default", URL: "/news"},
	{Name: "top", URL: "/news"},
	{Name: "newest", URL: "/newest"},
	{Name: "best", URL: "/best"},
	{Name: "ask", URL: "/ask"},
	{Name: "show", URL: "/show"},
	{Name: "latest", URL: "/newest"},
	{Name: "technology", URL: "/news"},
}

// HackerNews lists front-page stories with a colly collector and reads linked pages with readability.
type HackerNews struct {
	baseURL    string
	categories map[string]string
	order      []string
	fetcher    *web.Fetcher
	logger     *slog.Logger
}

var _ scraper.Source = (*HackerNews)(nil)

// NewHackerNews builds the Hacker News source.
func NewHackerNews(fetcher *web.Fetcher, logger *slog.Logger, ep Endpoint) *HackerNews {
	baseURL := hackerNewsBaseURL
	if ep.BaseURL != "" {
		baseURL = ep.BaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	if fetcher == nil {
		fetcher = web.NewFetcher(nil, web.Options{})
	}
	hn := &HackerNews{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		fetcher: fetcher,
		logger:  logger.With("component", "source", "source", "hackernews"),
	}
	hn.categories, hn.order = mergeCategories(hackerNewsCategories, ep.Categories)
	return hn
}

// Categories lists the supported feeds, default first.
func (h *HackerNews) Categories() []string {
	return append([]string(nil), h.order...)
}

// ListArticles visits one story list and turns each row into a headline.
func (h *HackerNews) ListArticles(ctx context.Context, category string) ([]domain.Headline, error) {
	path, ok := h.categories[normalizeCategory(category)]
	if !ok {
		h.logger.Debug("unsupported category", "category", category)
		return []domain.Headline{}, nil
	}
	pageURL := web.ResolveURL(h.baseURL+"/", path)
	if err := h.fetcher.Allowed(ctx, pageURL); err != nil {
		return nil, err
	}

	c := h.collector(ctx)

	var (
		headlines []domain.Headline
		status    int
	)
	seen := map[string]struct{}{}

	c.OnHTML("tr.athing", func(e *colly.HTMLElement) {
		link := e.DOM.Find("span.titleline > a").First()
		title := web.CleanText(link.Text())
		href, _ := link.Attr("href")
		storyURL := web.ResolveURL(e.Request.URL.String(), href)
		if title == "" || storyURL == "" {
			return
		}
		if _, dup := seen[storyURL]; dup {
			return
		}
		seen[storyURL] = struct{}{}

		subtext := e.DOM.Next()
		meta := map[string]string{}
		id := e.Attr("id")
		setIfPresent(meta, "hn_id", id)
		if id != "" {
			setIfPresent(meta, "discussion_url", web.ResolveURL(e.Request.URL.String(), "item?id="+id))
		}
		setIfPresent(meta, "points", strings.TrimSuffix(firstText(subtext, "span.score"), " points"))
		setIfPresent(meta, "site", firstText(e.DOM, "span.sitestr"))
		setIfPresent(meta, "comments", commentCount(web.CleanText(subtext.Find(`a[href^="item?id="]`).Last().Text())))

		headline := domain.Headline{Title: title, URL: storyURL, Metadata: meta}
		if age := strings.Fields(firstAttr(subtext, "span.age", "title")); len(age) > 0 {
			if ts, ok := web.ParseTime(age[0]); ok {
				headline.PublishedAt = ts
			}
		}
		headlines = append(headlines, headline)
	})
	c.OnError(func(r *colly.Response, _ error) {
		status = r.StatusCode
	})

	if err := c.Visit(pageURL); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		if status >= http.StatusBadRequest {
			return nil, &domain.FetchError{URL: pageURL, StatusCode: status}
		}
		return nil, &domain.FetchError{URL: pageURL, Err: err}
	}

	h.logger.Debug("listing parsed", "category", category, "headlines", len(headlines))
	if headlines == nil {
		headlines = []domain.Headline{}
	}
	return headlines, nil
}

// FetchFullArticle reads the story page. Self posts use the item text, links go through readability.
func (h *HackerNews) FetchFullArticle(ctx context.Context, headline domain.Headline) (domain.Article, error) {
	doc, err := h.fetcher.Document(ctx, headline.URL)
	if err != nil {
		return domain.Article{}, err
	}

	var content string
	if h.isItemPage(headline.URL) {
		content = strings.Join(web.Paragraphs(doc.Find("div.toptext p")), "\n\n")
		if content == "" {
			content = firstText(doc.Selection, "div.toptext")
		}
	}
	if content == "" {
		content, err = web.ReadableText(doc, headline.URL)
		if err != nil {
			return domain.Article{}, err
		}
	}
	return domain.Promote(headline, content)
}

func (h *HackerNews) isItemPage(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	base, err := url.Parse(h.baseURL)
	if err != nil {
		return false
	}
	return u.Host == base.Host && u.Path == "/item" && u.Query().Get("id") != ""
}

// collector builds a one-shot collector that shares the fetcher's transport and honours ctx.
func (h *HackerNews) collector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(h.fetcher.UserAgent()),
	)
	if timeout := h.fetcher.Timeout(); timeout > 0 {
		c.SetRequestTimeout(timeout)
	}

	base := h.fetcher.Client().Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.WithTransport(contextTransport{ctx: ctx, base: base})
	return c
}

// contextTransport binds every request a collector makes to ctx.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

func commentCount(text string) string {
	if !strings.Contains(text, "comment") {
		return ""
	}
	return strings.Fields(text)[0]
}
