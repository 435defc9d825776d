package web

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"NewsDigest/internal/domain"
)

// ReadableText runs a readability pass over doc and returns the main body as plain text.
func ReadableText(doc *goquery.Document, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", &domain.ParseError{URL: pageURL, Reason: "invalid url", Err: err}
	}

	markup, err := doc.Html()
	if err != nil {
		return "", &domain.ParseError{URL: pageURL, Reason: "render document", Err: err}
	}

	article, err := readability.FromReader(strings.NewReader(markup), parsedURL)
	if err != nil {
		return "", &domain.ParseError{URL: pageURL, Reason: "readability", Err: err}
	}

	content, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", &domain.ParseError{URL: pageURL, Reason: "parse readable content", Err: err}
	}
	content.Find("figure, aside, script, style, noscript").Remove()

	var paragraphs []string
	content.Find("p, h2, h3, li").Each(func(_ int, s *goquery.Selection) {
		if s.Is("li") && s.Find("p").Length() > 0 {
			return
		}
		if text := CleanText(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		if text := CleanText(content.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	text := strings.Join(paragraphs, "\n\n")
	if text == "" {
		return "", &domain.ParseError{URL: pageURL, Reason: "no readable content"}
	}
	return text, nil
}
