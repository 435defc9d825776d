package parser

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/web"
)

const cnnBaseURL = "https://www.cnn.com"

var cnnCategories = []Category{
	{Name: "default", URL: "/world"},
	{Name: "latest", URL: "/world"},
	{Name: "world", URL: "/world"},
	{Name: "us", URL: "/us"},
	{Name: "technology", URL: "/business/tech"},
	{Name: "general", URL: "/weather"},
}

const (
	cnnEntrySelector = "div.container__item, div.card, div.column--idx-0 article, div.column--idx-1 article, " +
		"div.card-container, article.card, div.headline-container"
	cnnTitleSelector = "span.container__headline-text, h3.headline a, span.headline a, h3.container__headline-text, " +
		"h4.container__headline-text, h3 a, h2 a, .headline a, h3.container__headline"
	cnnParagraphSelector = "div.live-story-post__content .paragraph, div.article__content p, .zn-body__paragraph, " +
		".paragraph, .article-content .speakable-paragraph, .article-content p, .article__main p"
)

// NewCNN builds the CNN source.
func NewCNN(fetcher *web.Fetcher, logger *slog.Logger, ep Endpoint) *HTMLSource {
	return newHTMLSource("cnn", cnnBaseURL, cnnCategories, cnnLayout{}, fetcher, logger, ep)
}

type cnnLayout struct{}

func (cnnLayout) entries(doc *goquery.Document) *goquery.Selection {
	return doc.Find(cnnEntrySelector)
}

func (cnnLayout) headline(entry *goquery.Selection, pageURL string) (domain.Headline, bool) {
	titleNode := entry.Find(cnnTitleSelector).First()
	if titleNode.Length() == 0 {
		return domain.Headline{}, false
	}
	title := web.CleanText(titleNode.Text())

	link := titleNode.Closest("a")
	if link.Length() == 0 {
		link = titleNode.Find("a").First()
	}
	href, _ := link.Attr("href")
	articleURL := web.ResolveURL(pageURL, href)
	if title == "" || articleURL == "" || strings.Contains(articleURL, "/videos/") {
		return domain.Headline{}, false
	}

	img := entry.Find("img.media__image").First()
	src, _ := img.Attr("src")
	if src == "" {
		src, _ = img.Attr("data-src-large")
	}

	return domain.Headline{
		Title:       title,
		URL:         articleURL,
		Description: firstText(entry, ".cd__description, .cd__headline-text, .headline__text"),
		ImageURL:    web.ResolveURL(pageURL, src),
	}, true
}

func (cnnLayout) content(doc *goquery.Document, _ string) detail {
	var paragraphs []string
	seen := map[string]struct{}{}
	doc.Find(cnnParagraphSelector).Each(func(_ int, p *goquery.Selection) {
		if isPromoBlock(p.Parent()) {
			return
		}
		text := web.CleanText(p.Text())
		if _, dup := seen[text]; dup || text == "" {
			return
		}
		seen[text] = struct{}{}
		paragraphs = append(paragraphs, text)
	})

	extra := map[string]string{}
	setIfPresent(extra, "image_url", web.MetaContent(doc, `meta[property="og:image"]`))
	setIfPresent(extra, "description", web.MetaContent(doc, `meta[property="og:description"], meta[name="description"]`))
	setIfPresent(extra, "canonical_url", firstAttr(doc.Selection, `link[rel="canonical"]`, "href"))
	published := web.MetaContent(doc, `meta[property="article:published_time"], meta[name="pubdate"]`)
	if published == "" {
		published = firstText(doc.Selection, "div.timestamp")
	}
	setIfPresent(extra, "published_at", published)

	return detail{
		content: strings.Join(paragraphs, "\n\n"),
		byline:  firstText(doc.Selection, "div.byline__names, div.headline_live-story__byline-sub-text"),
		extra:   extra,
	}
}

// isPromoBlock reports whether a paragraph container is an ad slot or a promo.
func isPromoBlock(parent *goquery.Selection) bool {
	class, ok := parent.Attr("class")
	if !ok {
		return false
	}
	for _, token := range strings.Fields(strings.ToLower(class)) {
		if token == "ad" || strings.HasPrefix(token, "ad-") || strings.HasPrefix(token, "ad_") ||
			strings.Contains(token, "promo") {
			return true
		}
	}
	return false
}
