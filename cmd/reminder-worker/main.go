package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budgetwise/internal/cli"
	"budgetwise/internal/notify"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting reminder-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the reminder worker")
		os.Exit(1)
	}

	client, err := notify.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	// Without an SMTP host the worker drains the queue into the log, which is
	// what local development runs against.
	var deliver func(context.Context, *notify.ReminderMessage) error
	if cfg.SMTPHost != "" {
		mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		deliver = mailer.DeliverReminder
		logger.Info("SMTP delivery configured", "host", cfg.SMTPHost, "from", cfg.SMTPFrom)
	} else {
		deliver = func(ctx context.Context, msg *notify.ReminderMessage) error {
			slog.InfoContext(ctx, "Reminder (SMTP disabled)",
				"email", msg.Email,
				"amount_cents", msg.AmountCents,
				"category", msg.Category,
				"date", msg.Date.Format("2006-01-02"))
			return nil
		}
		logger.Info("SMTP disabled - reminders are logged only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.ConsumeReminders(ctx, deliver); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Reminder consumption failed", "error", err)
		os.Exit(1)
	}

	// Give in-flight deliveries a moment before closing the channel.
	time.Sleep(500 * time.Millisecond)
	logger.Info("Reminder-worker shutdown complete")
}
