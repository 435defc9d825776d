package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

var errNoRegistry = errors.New("source registry is not configured")

// Request names what one collection run reads and what the reader cares about.
type Request struct {
	Sources    []string `json:"sources"`
	Categories []string `json:"categories"`
	Interests  string   `json:"interests"`
}

// Result is the outcome of one collection run. Articles follow selector order.
type Result struct {
	Articles  []domain.Article
	Failures  []domain.Failure
	Headlines int
	Selected  int
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Registry ports.SourceRegistry
	Selector ports.Selector
	Logger   *slog.Logger
}

// Pipeline implements the headline, selection and detail workflow.
type Pipeline struct {
	registry ports.SourceRegistry
	selector ports.Selector
	logger   *slog.Logger
}

// NewPipeline constructs the orchestration component. A nil selector selects every headline.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry: deps.Registry,
		selector: deps.Selector,
		logger:   logger.With("component", "pipeline"),
	}
}

// Headlines runs only the listing phase and flattens the result in source then category order.
func (p *Pipeline) Headlines(ctx context.Context, req Request) ([]domain.Headline, []domain.Failure) {
	if p.registry == nil {
		return nil, []domain.Failure{{Phase: domain.PhaseHeadlines, Reason: errNoRegistry.Error()}}
	}

	sourceIDs := req.Sources
	if len(sourceIDs) == 0 {
		sourceIDs = p.registry.IDs()
	}

	bySource, failures := p.registry.FetchHeadlines(ctx, sourceIDs, req.Categories)
	return flatten(sourceIDs, bySource), failures
}

// Collect fetches headlines, asks the selector which to keep, and fetches details for those.
func (p *Pipeline) Collect(ctx context.Context, req Request) (Result, error) {
	if p.registry == nil {
		return Result{}, errNoRegistry
	}

	headlines, failures := p.Headlines(ctx, req)
	result := Result{Failures: failures, Headlines: len(headlines)}
	p.debug("headlines collected", "count", len(headlines), "failures", len(failures))

	if len(headlines) == 0 {
		return result, nil
	}

	urls, err := p.selectURLs(ctx, headlines, req)
	if err != nil {
		return result, fmt.Errorf("select articles: %w", err)
	}

	selected := FilterSelected(headlines, urls)
	result.Selected = len(selected)
	p.debug("headlines selected", "requested", len(urls), "kept", len(selected))

	if len(selected) == 0 {
		return result, nil
	}

	articles, detailFailures := p.registry.FetchDetails(ctx, selected)
	result.Articles = articles
	result.Failures = append(result.Failures, detailFailures...)
	p.debug("details collected", "articles", len(articles), "failures", len(detailFailures))
	return result, nil
}

func (p *Pipeline) selectURLs(ctx context.Context, headlines []domain.Headline, req Request) ([]string, error) {
	if p.selector == nil {
		urls := make([]string, len(headlines))
		for i, h := range headlines {
			urls[i] = h.URL
		}
		return urls, nil
	}
	return p.selector.Select(ctx, headlines, req.Interests, req.Categories)
}

// FilterSelected keeps the headlines whose URL the selector returned, in selector order.
// Unknown and repeated URLs are ignored, so applying it twice changes nothing.
func FilterSelected(headlines []domain.Headline, urls []string) []domain.Headline {
	byURL := make(map[string]domain.Headline, len(headlines))
	for _, h := range headlines {
		if _, exists := byURL[h.URL]; !exists {
			byURL[h.URL] = h
		}
	}

	out := make([]domain.Headline, 0, len(urls))
	taken := map[string]struct{}{}
	for _, u := range urls {
		h, ok := byURL[u]
		if !ok {
			continue
		}
		if _, dup := taken[u]; dup {
			continue
		}
		taken[u] = struct{}{}
		out = append(out, h)
	}
	return out
}

// flatten orders headlines by source then category and drops repeated URLs, first one wins.
func flatten(sourceIDs []string, bySource map[string][]domain.Headline) []domain.Headline {
	var out []domain.Headline
	seenSource := map[string]struct{}{}
	seenURL := map[string]struct{}{}
	for _, id := range sourceIDs {
		if _, dup := seenSource[id]; dup {
			continue
		}
		seenSource[id] = struct{}{}
		for _, h := range bySource[id] {
			if _, dup := seenURL[h.URL]; dup {
				continue
			}
			seenURL[h.URL] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
