package parser

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/web"
)

const techCrunchBaseURL = "https://techcrunch.com"

var techCrunchCategories = []Category{
	{Name: "default", URL: "/latest"},
	{Name: "latest", URL: "/latest"},
	{Name: "ai", URL: "/category/artificial-intelligence"},
	{Name: "amazon", URL: "/tag/amazon"},
	{Name: "apps", URL: "/category/apps"},
	{Name: "biotech-health", URL: "/category/biotech-health"},
	{Name: "climate", URL: "/category/climate"},
	{Name: "cloud", URL: "/tag/cloud-computing"},
	{Name: "commerce", URL: "/category/commerce"},
	{Name: "crypto", URL: "/category/cryptocurrency"},
	{Name: "enterprise", URL: "/category/enterprise"},
	{Name: "electric vehicles", URL: "/tag/evs"},
	{Name: "fintech", URL: "/category/fintech"},
	{Name: "fundraising", URL: "/category/fundraising"},
	{Name: "gadgets", URL: "/category/gadgets"},
	{Name: "gaming", URL: "/category/gaming"},
	{Name: "google", URL: "/tag/google"},
	{Name: "government", URL: "/category/government-policy"},
	{Name: "hardware", URL: "/category/hardware"},
	{Name: "instagram", URL: "/tag/instagram"},
	{Name: "layoffs", URL: "/tag/layoffs"},
	{Name: "media entertainment", URL: "/category/media-entertainment"},
	{Name: "meta", URL: "/tag/meta"},
	{Name: "microsoft", URL: "/tag/microsoft"},
	{Name: "privacy", URL: "/category/privacy"},
	{Name: "robotics", URL: "/category/robots"},
	{Name: "social", URL: "/category/social"},
	{Name: "space", URL: "/category/space"},
	{Name: "startups", URL: "/category/startups"},
	{Name: "tiktok", URL: "/tag/tiktok"},
	{Name: "transportation", URL: "/category/transportation"},
	{Name: "venture", URL: "/category/venture"},
}

// NewTechCrunch builds the TechCrunch source.
func NewTechCrunch(fetcher *web.Fetcher, logger *slog.Logger, ep Endpoint) *HTMLSource {
	return newHTMLSource("techcrunch", techCrunchBaseURL, techCrunchCategories, techCrunchLayout{}, fetcher, logger, ep)
}

type techCrunchLayout struct{}

func (techCrunchLayout) entries(doc *goquery.Document) *goquery.Selection {
	return doc.Find("li.wp-block-post")
}

func (techCrunchLayout) headline(entry *goquery.Selection, pageURL string) (domain.Headline, bool) {
	link := entry.Find("h3.loop-card__title a.loop-card__title-link, a.loop-card__title-link").First()
	title := web.CleanText(link.Text())
	href, _ := link.Attr("href")
	articleURL := web.ResolveURL(pageURL, href)
	if title == "" || articleURL == "" {
		return domain.Headline{}, false
	}

	h := domain.Headline{
		Title:       title,
		URL:         articleURL,
		Description: firstText(entry, "div.post-block__content, p.loop-card__excerpt"),
		ImageURL:    web.ResolveURL(pageURL, firstAttr(entry, "figure.loop-card__figure img", "src")),
		Metadata:    map[string]string{},
	}
	if ts, ok := web.ParseTime(firstAttr(entry, "time", "datetime")); ok {
		h.PublishedAt = ts
	}
	setIfPresent(h.Metadata, "section", firstText(entry, "div.loop-card__cat-group a.loop-card__cat, div.loop-card__cat-group span.loop-card__cat"))
	return h, true
}

func (techCrunchLayout) content(doc *goquery.Document, _ string) detail {
	body := doc.Find("div.entry-content").First()
	body.Find("script, style, figure, aside, .wp-block-tc-ads-ad-slot").Remove()

	paragraphs := web.Paragraphs(body.Find("p, h2, h3, li"))
	text := strings.Join(paragraphs, "\n\n")
	if text == "" {
		text = web.CleanText(body.Text())
	}

	extra := map[string]string{}
	setIfPresent(extra, "summary", firstText(doc.Selection, "p#speakable-summary"))
	setIfPresent(extra, "image_url", firstAttr(doc.Selection, "figure.article__featured-image img", "src"))
	setIfPresent(extra, "published_at", firstAttr(doc.Selection, "time.article__timestamp, .wp-block-post-date time", "datetime"))

	byline := web.MetaContent(doc, `meta[name="author"]`)
	if byline == "" {
		byline = firstText(doc.Selection, ".wp-block-tc23-author-card-name, .article__byline a")
	}

	return detail{content: text, byline: byline, extra: extra}
}
