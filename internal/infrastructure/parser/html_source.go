package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/web"
	"NewsDigest/internal/scraper"
)

// Category maps a category token to the listing path or URL that serves it.
type Category struct {
	Name string
	URL  string
}

// Endpoint overrides where a source reads from. Zero values keep the built-in site map.
type Endpoint struct {
	BaseURL    string
	Categories []Category
	Options    map[string]string
}

// detail is what a layout pulls out of an article page.
type detail struct {
	content string
	byline  string
	extra   map[string]string
}

// layout holds the site-specific parts of an HTML source.
type layout interface {
	// entries locates the listing elements that each describe one article.
	entries(doc *goquery.Document) *goquery.Selection
	// headline extracts one listing entry; ok is false when the entry is unusable.
	headline(entry *goquery.Selection, pageURL string) (h domain.Headline, ok bool)
	// content extracts the article body and extras from a detail page.
	content(doc *goquery.Document, pageURL string) detail
}

// pager is implemented by layouts whose listing URL needs request parameters.
type pager interface {
	listingURL(pageURL string) (string, error)
}

// HTMLSource drives a layout over the shared fetcher. It implements scraper.Source.
type HTMLSource struct {
	name       string
	baseURL    string
	categories map[string]string
	order      []string
	layout     layout
	fetcher    *web.Fetcher
	logger     *slog.Logger
}

var _ scraper.Source = (*HTMLSource)(nil)

func newHTMLSource(name, baseURL string, builtin []Category, l layout, fetcher *web.Fetcher, logger *slog.Logger, ep Endpoint) *HTMLSource {
	if ep.BaseURL != "" {
		baseURL = ep.BaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	if fetcher == nil {
		fetcher = web.NewFetcher(nil, web.Options{})
	}

	s := &HTMLSource{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		layout:  l,
		fetcher: fetcher,
		logger:  logger.With("component", "source", "source", name),
	}
	s.categories, s.order = mergeCategories(builtin, ep.Categories)
	return s
}

// Name identifies the site in logs.
func (s *HTMLSource) Name() string {
	return s.name
}

// Categories lists the supported category tokens, default first.
func (s *HTMLSource) Categories() []string {
	return append([]string(nil), s.order...)
}

// ListArticles reads the listing page for category and extracts its headlines.
func (s *HTMLSource) ListArticles(ctx context.Context, category string) ([]domain.Headline, error) {
	pageURL, ok := s.categoryURL(category)
	if !ok {
		s.debug("unsupported category", "category", category)
		return []domain.Headline{}, nil
	}

	if p, ok := s.layout.(pager); ok {
		paged, err := p.listingURL(pageURL)
		if err != nil {
			return nil, &domain.ParseError{URL: pageURL, Reason: "build listing url", Err: err}
		}
		pageURL = paged
	}

	doc, err := s.fetcher.Document(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", category, err)
	}

	entries := s.layout.entries(doc)
	headlines := make([]domain.Headline, 0, entries.Length())
	seen := map[string]struct{}{}
	entries.Each(func(_ int, entry *goquery.Selection) {
		h, ok := s.layout.headline(entry, pageURL)
		if !ok || !h.Valid() {
			return
		}
		if _, dup := seen[h.URL]; dup {
			return
		}
		seen[h.URL] = struct{}{}
		headlines = append(headlines, h)
	})

	s.debug("listing parsed", "category", category, "entries", entries.Length(), "headlines", len(headlines))
	return headlines, nil
}

// FetchFullArticle loads the headline's page and promotes it with the extracted body.
func (s *HTMLSource) FetchFullArticle(ctx context.Context, h domain.Headline) (domain.Article, error) {
	doc, err := s.fetcher.Document(ctx, h.URL)
	if err != nil {
		return domain.Article{}, err
	}

	d := s.layout.content(doc, h.URL)
	if strings.TrimSpace(d.content) == "" {
		s.debug("layout found no content, trying readability", "url", h.URL)
		text, err := web.ReadableText(doc, h.URL)
		if err != nil {
			return domain.Article{}, err
		}
		d.content = text
	}

	article, err := domain.Promote(h, d.content)
	if err != nil {
		return domain.Article{}, err
	}
	article.Byline = d.byline
	article.Extra = d.extra
	return article, nil
}

func (s *HTMLSource) categoryURL(category string) (string, bool) {
	path, ok := s.categories[normalizeCategory(category)]
	if !ok {
		return "", false
	}
	resolved := web.ResolveURL(s.baseURL+"/", path)
	return resolved, resolved != ""
}

func (s *HTMLSource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

// mergeCategories layers configured categories over the built-in ones.
// Order is default first, then built-ins, then new configured names.
func mergeCategories(builtin, configured []Category) (map[string]string, []string) {
	urls := map[string]string{}
	var order []string
	add := func(c Category) {
		name := normalizeCategory(c.Name)
		path := strings.TrimSpace(c.URL)
		if name == "" || path == "" {
			return
		}
		if _, exists := urls[name]; !exists {
			order = append(order, name)
		}
		urls[name] = path
	}
	for _, c := range builtin {
		add(c)
	}
	for _, c := range configured {
		add(c)
	}

	if _, ok := urls[scraper.DefaultCategory]; !ok && len(order) > 0 {
		urls[scraper.DefaultCategory] = urls[order[0]]
		order = append(order, scraper.DefaultCategory)
	}
	for i, name := range order {
		if name == scraper.DefaultCategory && i > 0 {
			copy(order[1:i+1], order[:i])
			order[0] = scraper.DefaultCategory
			break
		}
	}
	return urls, order
}

func firstText(sel *goquery.Selection, selector string) string {
	return web.CleanText(sel.Find(selector).First().Text())
}

func firstAttr(sel *goquery.Selection, selector, attr string) string {
	value, _ := sel.Find(selector).First().Attr(attr)
	return strings.TrimSpace(value)
}

func setIfPresent(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}
