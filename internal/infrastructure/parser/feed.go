package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/web"
	"NewsDigest/internal/scraper"
)

// Feed reads an RSS or Atom feed per category and follows item links for the body.
type Feed struct {
	name            string
	baseURL         string
	categories      map[string]string
	order           []string
	contentSelector string
	fetcher         *web.Fetcher
	logger          *slog.Logger
}

var _ scraper.Source = (*Feed)(nil)

// NewFeed builds a feed source. Categories come only from configuration.
func NewFeed(name string, fetcher *web.Fetcher, logger *slog.Logger, ep Endpoint) (*Feed, error) {
	if len(ep.Categories) == 0 {
		return nil, &domain.ConfigurationError{SourceID: name, Reason: "feed source needs at least one category url"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if fetcher == nil {
		fetcher = web.NewFetcher(nil, web.Options{})
	}

	f := &Feed{
		name:            name,
		baseURL:         strings.TrimSuffix(ep.BaseURL, "/"),
		contentSelector: strings.TrimSpace(ep.Options["content_selector"]),
		fetcher:         fetcher,
		logger:          logger.With("component", "source", "source", name),
	}
	f.categories, f.order = mergeCategories(nil, ep.Categories)
	return f, nil
}

// Categories lists the configured feed names, default first.
func (f *Feed) Categories() []string {
	return append([]string(nil), f.order...)
}

// ListArticles downloads the category's feed and maps its items to headlines.
func (f *Feed) ListArticles(ctx context.Context, category string) ([]domain.Headline, error) {
	feedURL, ok := f.feedURL(category)
	if !ok {
		f.logger.Debug("unsupported category", "category", category)
		return []domain.Headline{}, nil
	}

	body, err := f.fetcher.Bytes(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", category, err)
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ParseError{URL: feedURL, Reason: "parse feed", Err: err}
	}

	headlines := make([]domain.Headline, 0, len(parsed.Items))
	seen := map[string]struct{}{}
	for _, item := range parsed.Items {
		h := itemToHeadline(item, parsed.Title, feedURL)
		if !h.Valid() {
			continue
		}
		if _, dup := seen[h.URL]; dup {
			continue
		}
		seen[h.URL] = struct{}{}
		headlines = append(headlines, h)
	}

	f.logger.Debug("feed parsed", "category", category, "items", len(parsed.Items), "headlines", len(headlines))
	return headlines, nil
}

// FetchFullArticle loads the item's page. A configured content selector wins over readability.
func (f *Feed) FetchFullArticle(ctx context.Context, h domain.Headline) (domain.Article, error) {
	doc, err := f.fetcher.Document(ctx, h.URL)
	if err != nil {
		return domain.Article{}, err
	}

	var content string
	if f.contentSelector != "" {
		content = strings.Join(web.Paragraphs(doc.Find(f.contentSelector)), "\n\n")
	}
	if content == "" {
		content, err = web.ReadableText(doc, h.URL)
		if err != nil {
			return domain.Article{}, err
		}
	}
	return domain.Promote(h, content)
}

func (f *Feed) feedURL(category string) (string, bool) {
	raw, ok := f.categories[normalizeCategory(category)]
	if !ok {
		return "", false
	}
	if f.baseURL == "" {
		resolved := web.ResolveURL(raw, raw)
		return resolved, resolved != ""
	}
	resolved := web.ResolveURL(f.baseURL+"/", raw)
	return resolved, resolved != ""
}

func itemToHeadline(item *gofeed.Item, feedTitle, feedURL string) domain.Headline {
	h := domain.Headline{
		Title:       web.CleanText(item.Title),
		URL:         web.ResolveURL(feedURL, item.Link),
		Description: stripMarkup(item.Description),
		Metadata:    map[string]string{},
	}
	if item.PublishedParsed != nil {
		h.PublishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		h.PublishedAt = *item.UpdatedParsed
	}
	if item.Image != nil {
		h.ImageURL = web.ResolveURL(feedURL, item.Image.URL)
	}

	var authors []string
	for _, author := range item.Authors {
		if author != nil && author.Name != "" {
			authors = append(authors, author.Name)
		}
	}
	setIfPresent(h.Metadata, "feed", web.CleanText(feedTitle))
	setIfPresent(h.Metadata, "authors", strings.Join(authors, ", "))
	setIfPresent(h.Metadata, "guid", item.GUID)
	setIfPresent(h.Metadata, "tags", strings.Join(item.Categories, ", "))
	return h
}

// stripMarkup reduces an HTML fragment, as feeds often embed in descriptions, to plain text.
func stripMarkup(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return web.CleanText(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return web.CleanText(fragment)
	}
	return web.CleanText(doc.Text())
}
