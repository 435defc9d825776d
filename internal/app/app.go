package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"NewsDigest/internal/api"
	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/email"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/infrastructure/parser"
	"NewsDigest/internal/infrastructure/ranking"
	"NewsDigest/internal/infrastructure/scheduler"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/infrastructure/telegram"
	"NewsDigest/internal/infrastructure/web"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scraper"
	"NewsDigest/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *scraper.Registry
	pipeline  *usecase.Pipeline
	digest    *usecase.DigestService
	scheduler *usecase.Scheduler
	server    *api.Server
	db        *sql.DB
}

// New builds every adapter the configuration enables and connects them to the use cases.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	fetcher := web.NewFetcher(nil, web.Options{
		Timeout:       cfg.Fetch.Timeout,
		UserAgent:     cfg.Fetch.UserAgent,
		RespectRobots: cfg.Fetch.RespectRobots,
	})

	registry := scraper.NewRegistry(baseLogger,
		scraper.WithWorkers(cfg.Fetch.Workers),
		scraper.WithCallTimeout(cfg.Fetch.CallTimeout),
		scraper.WithLimit(cfg.Digest.PerCategoryLimit),
	)
	if err := parser.Register(registry, cfg.Sites, fetcher, baseLogger); err != nil {
		return nil, fmt.Errorf("register sources: %w", err)
	}

	var (
		selector   ports.Selector
		summarizer ports.Summarizer
	)
	if cfg.OpenAI.Enabled() {
		client := llm.New(cfg.OpenAI, baseLogger)
		selector, summarizer = client, client
	} else {
		baseLogger.Warn("openai api key missing, using keyword selection without summaries")
		selector = ranking.NewKeywordSelector(cfg.Digest.MaxSelected)
	}

	notifiers := buildNotifiers(cfg, baseLogger)

	a := &Application{cfg: cfg, logger: baseLogger, registry: registry}

	var runs ports.RunRepository
	if cfg.Database.DSN != "" {
		db, err := storage.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repo := storage.NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		runs = repo
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Registry: registry,
		Selector: selector,
		Logger:   baseLogger,
	})
	a.digest = usecase.NewDigestService(usecase.DigestDeps{
		Pipeline:   a.pipeline,
		Summarizer: summarizer,
		Notifiers:  notifiers,
		Runs:       runs,
		Logger:     baseLogger,
	})

	cron, err := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.scheduler = usecase.NewScheduler(cron, a.digest, a.DefaultRequest(), baseLogger)

	a.server = api.NewServer(api.Deps{
		Registry: registry,
		Pipeline: a.pipeline,
		Digest:   a.digest,
		Runs:     runs,
		Logger:   baseLogger,
	})

	baseLogger.Info("application ready",
		"sources", registry.IDs(),
		"notifiers", len(notifiers),
		"llm", cfg.OpenAI.Enabled(),
		"history", runs != nil,
	)
	return a, nil
}

func buildNotifiers(cfg config.Config, logger *slog.Logger) []ports.Notifier {
	var out []ports.Notifier
	if cfg.Email.Enabled() {
		out = append(out, email.NewSender(cfg.Email, cfg.Scheduler.Location(), nil, logger))
	}
	if cfg.Telegram.Enabled() {
		out = append(out, telegram.NewNotifier(cfg.Telegram, nil, logger))
	}
	if len(out) == 0 {
		logger.Warn("no notifier configured, digests cannot be delivered")
	}
	return out
}

// DefaultRequest is the request scheduled runs make.
func (a *Application) DefaultRequest() usecase.Request {
	return usecase.Request{
		Sources:    a.cfg.Digest.Sources,
		Categories: a.cfg.Digest.Categories,
		Interests:  a.cfg.Digest.Interests,
	}
}

// RunOnce performs a single digest run with the configured request.
func (a *Application) RunOnce(ctx context.Context) (domain.RunReport, error) {
	return a.digest.Run(ctx, a.DefaultRequest())
}

// RunScheduled blocks running digests on the cron schedule until ctx is cancelled.
func (a *Application) RunScheduled(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Serve runs the HTTP API until ctx is cancelled, then shuts it down gracefully.
func (a *Application) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.API.Addr,
		Handler:           a.server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("api listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api: %w", err)
	}
	return nil
}

// Handler exposes the API router, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.server.Router()
}

// Close releases the database connection when one was opened.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
