package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsDigest/internal/domain"
)

const (
	defaultWorkers     = 4
	defaultCallTimeout = 30 * time.Second
)

// Option tunes a Registry.
type Option func(*Registry)

// WithWorkers bounds how many source calls run at once.
func WithWorkers(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithCallTimeout bounds every single ListArticles or FetchFullArticle call.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// WithLimit caps the headlines kept per source and category. Zero keeps everything.
func WithLimit(n int) Option {
	return func(r *Registry) {
		if n >= 0 {
			r.limit = n
		}
	}
}

// Registry keeps a mapping from source ids to their implementations and fans calls out to them.
type Registry struct {
	logger      *slog.Logger
	workers     int
	callTimeout time.Duration
	limit       int

	mu      sync.RWMutex
	order   []string
	sources map[string]Source
	sealed  bool
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:      logger.With("component", "registry"),
		workers:     defaultWorkers,
		callTimeout: defaultCallTimeout,
		sources:     map[string]Source{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a source under id. Ids are unique and registration closes once fetching starts.
func (r *Registry) Register(id string, src Source) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &domain.ConfigurationError{Reason: "source id is empty"}
	}
	if src == nil {
		return &domain.ConfigurationError{SourceID: id, Reason: "source is nil"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return &domain.ConfigurationError{SourceID: id, Reason: "registry is sealed"}
	}
	if _, exists := r.sources[id]; exists {
		return &domain.ConfigurationError{SourceID: id, Reason: "duplicate source id"}
	}
	r.sources[id] = src
	r.order = append(r.order, id)
	return nil
}

// seal closes registration. It shares the lock with Register so no source slips in after the first fetch.
func (r *Registry) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// IDs returns registered source ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Lookup returns the source registered under id.
func (r *Registry) Lookup(id string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[id]
	return src, ok
}

// Catalog maps every source id to the categories it supports.
func (r *Registry) Catalog() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string, len(r.sources))
	for id, src := range r.sources {
		out[id] = src.Categories()
	}
	return out
}

type listTask struct {
	sourceID string
	category string
	src      Source
}

// FetchHeadlines runs the listing phase for every requested source and category.
// Every known requested source is present in the result, possibly with no records.
func (r *Registry) FetchHeadlines(ctx context.Context, sourceIDs, categories []string) (map[string][]domain.Headline, []domain.Failure) {
	r.seal()

	if len(sourceIDs) == 0 {
		sourceIDs = r.IDs()
	}
	categories = normalizeCategories(categories)

	result := make(map[string][]domain.Headline, len(sourceIDs))
	var tasks []listTask
	seen := map[string]bool{}
	for _, id := range sourceIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		src, ok := r.Lookup(id)
		if !ok {
			r.logger.Warn("unknown source requested", "source", id)
			continue
		}
		result[id] = []domain.Headline{}
		for _, category := range categories {
			tasks = append(tasks, listTask{sourceID: id, category: category, src: src})
		}
	}

	slots := make([][]domain.Headline, len(tasks))
	failures := make([]*domain.Failure, len(tasks))

	r.fanOut(ctx, len(tasks), func(callCtx context.Context, i int) error {
		task := tasks[i]
		records, err := task.src.ListArticles(callCtx, task.category)
		if err != nil {
			return err
		}
		slots[i] = r.stamp(task, records)
		return nil
	}, func(i int, err error) {
		task := tasks[i]
		r.logger.Warn("listing failed", "source", task.sourceID, "category", task.category, "error", err)
		failures[i] = &domain.Failure{
			Phase:    domain.PhaseHeadlines,
			SourceID: task.sourceID,
			Category: task.category,
			Reason:   err.Error(),
		}
	})

	for i, task := range tasks {
		result[task.sourceID] = append(result[task.sourceID], slots[i]...)
	}
	return result, compact(failures)
}

// FetchDetails promotes each headline through the source that produced it.
// Records that fail are dropped; the rest keep their input order.
func (r *Registry) FetchDetails(ctx context.Context, headlines []domain.Headline) ([]domain.Article, []domain.Failure) {
	r.seal()

	slots := make([]*domain.Article, len(headlines))
	failures := make([]*domain.Failure, len(headlines))

	r.fanOut(ctx, len(headlines), func(callCtx context.Context, i int) error {
		headline := headlines[i]
		src, ok := r.Lookup(headline.SourceID)
		if !ok {
			return &domain.ConfigurationError{SourceID: headline.SourceID, Reason: "source is not registered"}
		}
		article, err := src.FetchFullArticle(callCtx, headline)
		if err != nil {
			return err
		}
		if strings.TrimSpace(article.Content) == "" {
			return &domain.ParseError{URL: headline.URL, Reason: "article content is empty"}
		}
		slots[i] = &article
		return nil
	}, func(i int, err error) {
		headline := headlines[i]
		r.logger.Warn("detail fetch failed", "source", headline.SourceID, "url", headline.URL, "error", err)
		failures[i] = &domain.Failure{
			Phase:    domain.PhaseDetails,
			SourceID: headline.SourceID,
			Category: headline.Category,
			URL:      headline.URL,
			Reason:   err.Error(),
		}
	})

	articles := make([]domain.Article, 0, len(headlines))
	for _, article := range slots {
		if article != nil {
			articles = append(articles, *article)
		}
	}
	return articles, compact(failures)
}

// fanOut runs call for indexes [0, n) on the worker pool. Errors and panics go to fail,
// which writes only to its own slot.
func (r *Registry) fanOut(ctx context.Context, n int, call func(context.Context, int) error, fail func(int, error)) {
	if n == 0 {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				fail(i, fmt.Errorf("skipped: %w", err))
				return nil
			}
			if err := r.guard(ctx, i, call); err != nil {
				fail(i, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Registry) guard(ctx context.Context, i int, call func(context.Context, int) error) (err error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("source panicked", "panic", rec, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	err = call(callCtx, i)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("call timed out after %s: %w", r.callTimeout, err)
	}
	return err
}

func (r *Registry) stamp(task listTask, records []domain.Headline) []domain.Headline {
	out := make([]domain.Headline, 0, len(records))
	for _, record := range records {
		if !record.Valid() {
			r.logger.Debug("dropping invalid record", "source", task.sourceID, "category", task.category, "url", record.URL)
			continue
		}
		record.SourceID = task.sourceID
		record.Category = task.category
		out = append(out, record)
		if r.limit > 0 && len(out) == r.limit {
			break
		}
	}
	return out
}

func normalizeCategories(categories []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return []string{DefaultCategory}
	}
	return out
}

func compact(failures []*domain.Failure) []domain.Failure {
	var out []domain.Failure
	for _, f := range failures {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}
