package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"NewsDigest/internal/app"
	"NewsDigest/internal/config"
	"NewsDigest/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run a single digest and exit instead of following the cron schedule")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewWithWriter(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("init application", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if *once {
		report, err := application.RunOnce(ctx)
		if err != nil {
			logger.Error("digest run failed", "run_id", report.ID, "status", report.Status, "error", err)
			_ = application.Close()
			os.Exit(1)
		}
		return
	}

	if err := application.RunScheduled(ctx); err != nil {
		logger.Error("scheduler stopped", "error", err)
		_ = application.Close()
		os.Exit(1)
	}
}
