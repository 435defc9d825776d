package ports

import (
	"context"
	"time"

	"NewsDigest/internal/domain"
)

// SourceRegistry dispatches the two fetch phases to registered sources.
type SourceRegistry interface {
	IDs() []string
	Catalog() map[string][]string
	FetchHeadlines(ctx context.Context, sourceIDs, categories []string) (map[string][]domain.Headline, []domain.Failure)
	FetchDetails(ctx context.Context, headlines []domain.Headline) ([]domain.Article, []domain.Failure)
}

// Selector picks the headlines worth a detail fetch. It returns URLs in priority order.
type Selector interface {
	Select(ctx context.Context, headlines []domain.Headline, interests string, categories []string) ([]string, error)
}

// Summarizer writes the HTML digest summary for the detailed articles.
type Summarizer interface {
	Summarize(ctx context.Context, articles []domain.Article, interests string) (string, error)
}

// Notifier delivers a finished digest to e-mail, Telegram or other channels.
type Notifier interface {
	Name() string
	Deliver(ctx context.Context, digest domain.Digest) error
}

// RunRepository keeps run history. It never stores articles.
type RunRepository interface {
	SaveRun(ctx context.Context, report domain.RunReport) error
	RecentRuns(ctx context.Context, limit int) ([]domain.RunReport, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
