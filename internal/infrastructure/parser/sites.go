package parser

import (
	"fmt"
	"log/slog"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/web"
	"NewsDigest/internal/scraper"
)

// NamedSource pairs a constructed source with the id it registers under.
type NamedSource struct {
	ID     string
	Source scraper.Source
}

// BuildSources constructs one source per configured site, in configuration order.
func BuildSources(sites []config.SiteConfig, fetcher *web.Fetcher, logger *slog.Logger) ([]NamedSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	out := make([]NamedSource, 0, len(sites))
	for _, site := range sites {
		logger.Debug("build source", "site", site.Name, "kind", site.Kind, "categories", len(site.Categories))

		src, err := buildSource(site, fetcher, logger)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}
		out = append(out, NamedSource{ID: site.Name, Source: src})
	}
	return out, nil
}

// Register builds the configured sources and adds them to reg.
func Register(reg *scraper.Registry, sites []config.SiteConfig, fetcher *web.Fetcher, logger *slog.Logger) error {
	sources, err := BuildSources(sites, fetcher, logger)
	if err != nil {
		return err
	}
	for _, s := range sources {
		if err := reg.Register(s.ID, s.Source); err != nil {
			return err
		}
	}
	return nil
}

func buildSource(site config.SiteConfig, fetcher *web.Fetcher, logger *slog.Logger) (scraper.Source, error) {
	ep := toEndpoint(site)
	switch site.Kind {
	case config.KindTechCrunch:
		return NewTechCrunch(fetcher, logger, ep), nil
	case config.KindCNN:
		return NewCNN(fetcher, logger, ep), nil
	case config.KindArxiv:
		src, err := NewArxiv(fetcher, logger, ep)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.KindHackerNews:
		return NewHackerNews(fetcher, logger, ep), nil
	case config.KindFeed:
		src, err := NewFeed(site.Name, fetcher, logger, ep)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, &domain.ConfigurationError{SourceID: site.Name, Reason: fmt.Sprintf("unknown kind %q", site.Kind)}
	}
}

func toEndpoint(site config.SiteConfig) Endpoint {
	categories := make([]Category, 0, len(site.Categories))
	for _, cat := range site.Categories {
		categories = append(categories, Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return Endpoint{BaseURL: site.BaseURL, Categories: categories, Options: site.Options}
}
