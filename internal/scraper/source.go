package scraper

import (
	"context"

	"NewsDigest/internal/domain"
)

// DefaultCategory is requested when a caller names no categories.
const DefaultCategory = "default"

// Source captures one news site behind a uniform capability set.
type Source interface {
	// Categories lists the category tokens the site understands, DefaultCategory first.
	Categories() []string
	// ListArticles reads one listing page. Unknown categories yield no records and no error.
	ListArticles(ctx context.Context, category string) ([]domain.Headline, error)
	// FetchFullArticle promotes a headline produced by this source to its detailed form.
	FetchFullArticle(ctx context.Context, headline domain.Headline) (domain.Article, error)
}
