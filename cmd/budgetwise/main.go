package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetwise/internal/cli"
	apphttp "budgetwise/internal/http"
	"budgetwise/internal/services"
	"budgetwise/internal/tags"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting budgetwise API")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	extractor := tags.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.TaggingTimeout)
	if cfg.OpenAIAPIKey == "" {
		logger.Info("OpenAI key not set - tag extraction uses word fallbacks only")
	}

	lifecycle := services.NewLifecycle(repo)
	catchup := services.NewCatchUp(repo, repo, extractor, cfg.CatchUpMaxOccurrence)

	srv := apphttp.NewServer(":"+cfg.Port, lifecycle, catchup)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening", "port", cfg.Port, "sqlite_db", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
