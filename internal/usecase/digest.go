package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// ErrNotDelivered is returned when no notifier accepted the digest.
var ErrNotDelivered = errors.New("digest was not delivered")

// DigestDeps wires the collaborators of a digest run.
type DigestDeps struct {
	Pipeline   *Pipeline
	Summarizer ports.Summarizer
	Notifiers  []ports.Notifier
	Runs       ports.RunRepository
	Logger     *slog.Logger
	Now        func() time.Time
}

// DigestService runs the whole flow: collect, summarize, deliver, record.
type DigestService struct {
	pipeline   *Pipeline
	summarizer ports.Summarizer
	notifiers  []ports.Notifier
	runs       ports.RunRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewDigestService constructs the digest use case.
func NewDigestService(deps DigestDeps) *DigestService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &DigestService{
		pipeline:   deps.Pipeline,
		summarizer: deps.Summarizer,
		notifiers:  deps.Notifiers,
		runs:       deps.Runs,
		logger:     logger.With("component", "digest"),
		now:        now,
	}
}

// Run executes one digest and returns its report. The report is filled even when err is set.
func (s *DigestService) Run(ctx context.Context, req Request) (domain.RunReport, error) {
	report := domain.RunReport{
		ID:        uuid.NewString(),
		StartedAt: s.now().UTC(),
	}
	log := s.logger.With("run_id", report.ID)
	log.Info("digest run started", "sources", req.Sources, "categories", req.Categories)

	err := s.run(ctx, req, &report, log)

	report.FinishedAt = s.now().UTC()
	s.save(ctx, report, log)

	log.Info("digest run finished",
		"status", report.Status,
		"headlines", report.Headlines,
		"selected", report.Selected,
		"delivered", report.Delivered,
		"failures", len(report.Failures),
	)
	return report, err
}

func (s *DigestService) run(ctx context.Context, req Request, report *domain.RunReport, log *slog.Logger) error {
	result, err := s.pipeline.Collect(ctx, req)
	report.Headlines = result.Headlines
	report.Selected = result.Selected
	report.Failures = append(report.Failures, result.Failures...)
	if err != nil {
		report.Status = domain.RunFailed
		report.Failures = append(report.Failures, domain.Failure{Phase: domain.PhaseSelection, Reason: err.Error()})
		return fmt.Errorf("collect articles: %w", err)
	}

	if len(result.Articles) == 0 {
		report.Status = domain.RunEmpty
		log.Info("no articles to deliver")
		return nil
	}

	digest := domain.Digest{
		RunID:    report.ID,
		Date:     report.StartedAt,
		Articles: result.Articles,
	}

	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(ctx, result.Articles, req.Interests)
		if err != nil {
			log.Warn("summary failed, delivering without it", "error", err)
			report.Failures = append(report.Failures, domain.Failure{Phase: domain.PhaseSummary, Reason: err.Error()})
		} else {
			digest.Summary = summary
		}
	}

	for _, n := range s.notifiers {
		if err := n.Deliver(ctx, digest); err != nil {
			log.Warn("delivery failed", "notifier", n.Name(), "error", err)
			report.Failures = append(report.Failures, domain.Failure{
				Phase:  domain.PhaseDelivery,
				Reason: fmt.Sprintf("%s: %v", n.Name(), err),
			})
			continue
		}
		report.Delivered++
	}

	if report.Delivered == 0 {
		report.Status = domain.RunFailed
		return ErrNotDelivered
	}
	report.Status = domain.RunDelivered
	return nil
}

func (s *DigestService) save(ctx context.Context, report domain.RunReport, log *slog.Logger) {
	if s.runs == nil {
		return
	}
	if err := s.runs.SaveRun(context.WithoutCancel(ctx), report); err != nil {
		log.Error("save run report", "error", err)
	}
}
