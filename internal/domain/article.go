package domain

import (
	"maps"
	"strings"
	"time"
)

// Headline is an article as seen on a listing page. It never carries body content.
type Headline struct {
	SourceID    string
	Title       string
	URL         string
	Description string
	Category    string
	PublishedAt time.Time
	ImageURL    string
	Metadata    map[string]string
}

// Valid reports whether the headline carries the fields every stage relies on.
func (h Headline) Valid() bool {
	return strings.TrimSpace(h.Title) != "" && strings.TrimSpace(h.URL) != ""
}

// Clone returns a copy that shares no mutable state with h.
func (h Headline) Clone() Headline {
	h.Metadata = maps.Clone(h.Metadata)
	return h
}

// Article is a headline promoted with the full body fetched from its page.
type Article struct {
	Headline

	Content string
	Byline  string
	Extra   map[string]string
}

// Promote builds the detailed record for h. Content must be non-empty.
func Promote(h Headline, content string) (Article, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Article{}, &ParseError{URL: h.URL, Reason: "article content is empty"}
	}
	return Article{Headline: h.Clone(), Content: content}, nil
}

// Digest is the payload handed to notifiers.
type Digest struct {
	RunID    string
	Date     time.Time
	Summary  string
	Articles []Article
}
