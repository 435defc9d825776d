package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsDigest/internal/ports"
)

// Scheduler wires the cron-like driver with the digest use case.
type Scheduler struct {
	driver  ports.Scheduler
	digest  *DigestService
	request Request
	logger  *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring digest runs with a fixed request.
func NewScheduler(driver ports.Scheduler, digest *DigestService, req Request, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, digest: digest, request: req, logger: logger.With("component", "scheduler")}
}

// Start registers the digest run with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.digest == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled run triggered", "at", trigger)
		if _, err := s.digest.Run(ctx, s.request); err != nil {
			s.logger.Error("scheduled run failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
