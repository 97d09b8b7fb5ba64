package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"timesheet/internal/platform/awsclient"
	"timesheet/internal/platform/config"
	"timesheet/internal/platform/email"
	"timesheet/internal/platform/queue"
	"timesheet/internal/platform/telemetry"
)

// The notification worker drains NOTIFICATION_QUEUE_URL and sends each
// message through the configured mail provider.
func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if cfg.NotificationQueueURL == "" {
		slog.Error("NOTIFICATION_QUEUE_URL is required")
		os.Exit(1)
	}
	if !cfg.EmailEnabled {
		slog.Warn("EMAIL_ENABLED is false; messages will be consumed without sending")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, "timesheet-notification-worker", cfg.TracingExporter, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	awsCfg, err := awsclient.Load(ctx, cfg)
	if err != nil {
		slog.Error("unable to load aws config", "err", err)
		os.Exit(1)
	}

	mailer := email.New(cfg, ses.NewFromConfig(awsCfg))
	worker := queue.NewWorker(sqs.NewFromConfig(awsCfg), cfg.NotificationQueueURL, queue.MailProcessor{Mailer: mailer})
	worker.Concurrency = max(cfg.WorkerConcurrency, 1)

	worker.Run(ctx)
	slog.Info("worker exited gracefully")
}
