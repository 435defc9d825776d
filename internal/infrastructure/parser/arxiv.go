package parser

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/web"
)

const (
	arxivBaseURL     = "https://arxiv.org"
	arxivDefaultShow = 50
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

var arxivCategories = []Category{
	{Name: "default", URL: "/list/cs.AI/recent"},
	{Name: "cs.ai", URL: "/list/cs.AI/recent"},
	{Name: "cs.lg", URL: "/list/cs.LG/recent"},
	{Name: "cs.cl", URL: "/list/cs.CL/recent"},
	{Name: "cs.cv", URL: "/list/cs.CV/recent"},
	{Name: "cs.ro", URL: "/list/cs.RO/recent"},
	{Name: "cs.cr", URL: "/list/cs.CR/recent"},
	{Name: "stat.ml", URL: "/list/stat.ML/recent"},
	{Name: "ai", URL: "/list/cs.AI/recent"},
}

// NewArxiv builds the arXiv listing source. The page_size option sets how many entries a listing requests.
func NewArxiv(fetcher *web.Fetcher, logger *slog.Logger, ep Endpoint) (*HTMLSource, error) {
	pageSize := arxivDefaultShow
	if raw := strings.TrimSpace(ep.Options["page_size"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, &domain.ConfigurationError{SourceID: "arxiv", Reason: fmt.Sprintf("invalid page_size %q", raw)}
		}
		pageSize = n
	}
	return newHTMLSource("arxiv", arxivBaseURL, arxivCategories, arxivLayout{pageSize: pageSize}, fetcher, logger, ep), nil
}

type arxivLayout struct {
	pageSize int
}

func (a arxivLayout) listingURL(pageURL string) (string, error) {
	return buildPageURL(pageURL, 0, a.pageSize)
}

func (arxivLayout) entries(doc *goquery.Document) *goquery.Selection {
	return doc.Find("dl > dt")
}

func (arxivLayout) headline(dt *goquery.Selection, pageURL string) (domain.Headline, bool) {
	dd := dt.Next()

	link := dt.Find(`a[href*="/abs/"]`).First()
	href, _ := link.Attr("href")
	articleURL := web.ResolveURL(pageURL, href)

	id := web.CleanText(link.Text())
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}

	title := web.CleanText(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	summary := web.CleanText(dd.Find("p.mathjax").First().Text())
	summary = strings.TrimSpace(strings.TrimPrefix(summary, "Abstract:"))

	authors := web.CleanText(dd.Find(".list-authors").First().Text())
	authors = strings.TrimSpace(strings.TrimPrefix(authors, "Authors:"))

	h := domain.Headline{
		Title:       title,
		URL:         articleURL,
		Description: summary,
		Metadata:    map[string]string{},
	}
	setIfPresent(h.Metadata, "arxiv_id", id)
	setIfPresent(h.Metadata, "authors", authors)

	if publishedAt, ok := entryDate(dd); ok {
		h.PublishedAt = publishedAt
	}
	return h, title != "" && articleURL != ""
}

func (arxivLayout) content(doc *goquery.Document, pageURL string) detail {
	abstract := web.CleanText(doc.Find("blockquote.abstract").First().Text())
	abstract = strings.TrimSpace(strings.TrimPrefix(abstract, "Abstract:"))

	authors := web.CleanText(doc.Find("div.authors").First().Text())
	authors = strings.TrimSpace(strings.TrimPrefix(authors, "Authors:"))

	extra := map[string]string{}
	setIfPresent(extra, "subjects", firstText(doc.Selection, "td.subjects"))
	setIfPresent(extra, "submitted", firstText(doc.Selection, "div.dateline"))
	setIfPresent(extra, "pdf_url", web.ResolveURL(pageURL, firstAttr(doc.Selection, `a[href*="/pdf/"]`, "href")))

	return detail{content: abstract, byline: authors, extra: extra}
}

func entryDate(dd *goquery.Selection) (time.Time, bool) {
	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	match := dateExpr.FindString(dateText)
	if match == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse("2 Jan 2006", match)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
