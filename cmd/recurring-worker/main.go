package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budgetwise/internal/cli"
	"budgetwise/internal/notify"
	"budgetwise/internal/services"
	"budgetwise/internal/tags"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Reminders go through AMQP; the reminder worker turns them into email.
	// Without a broker the worker still materializes, it just skips reminders.
	var notifier services.ReminderSender
	if cfg.AMQPURL != "" {
		client, err := notify.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without reminders", "error", err)
		} else {
			defer client.Close()
			notifier = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - reminders will not be sent")
	}

	extractor := tags.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.TaggingTimeout)
	materializer := services.NewMaterializer(repo, repo, repo, extractor, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring processor configured",
		"interval", cfg.ProcessorInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.ProcessorInterval)
	defer ticker.Stop()

	runPass := func(now time.Time) {
		sum, err := materializer.RunScheduledPass(ctx, now)
		if err != nil {
			slog.ErrorContext(ctx, "Scheduled pass failed", "error", err)
			return
		}
		slog.InfoContext(ctx, "Scheduled pass complete",
			"reminded", sum.Reminded,
			"created", sum.Created,
			"skipped", sum.Skipped,
			"expired", sum.Expired,
			"failed", sum.Failed,
			"next_check", now.Add(cfg.ProcessorInterval).Format("15:04:05"))
	}

	// Run once on startup so a restart never skips a day.
	logger.Info("Running initial scheduled pass...")
	runPass(time.Now())

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				runPass(now)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())
	cancel()
	logger.Info("Recurring-worker shutdown complete")
}
