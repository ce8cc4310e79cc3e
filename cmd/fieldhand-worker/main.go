package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/veldtops/fieldhand/internal/adapters/duckdb"
	"github.com/veldtops/fieldhand/internal/adapters/redisq"
	"github.com/veldtops/fieldhand/internal/config"
	"github.com/veldtops/fieldhand/internal/core/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	cfg := config.Load()

	repo, err := duckdb.NewRepository(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	queue := redisq.New(redisClient, cfg.QueueKey, logger)

	workspace := services.NewWorkspace(cfg.WorkspaceDir)

	registry := services.NewRegistry()
	tracker := services.NewTracker(repo, queue, registry, logger)
	executor := services.NewExecutor(logger)
	if err := services.RegisterBuiltinOperations(registry, tracker, executor, workspace); err != nil {
		return fmt.Errorf("register operations: %w", err)
	}

	worker := services.NewWorker(queue, tracker, logger)
	heartbeat := services.NewHeartbeat(logger, cfg.HeartbeatInterval)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("worker started", "queue", cfg.QueueKey)
		return worker.Run(groupCtx)
	})
	group.Go(func() error {
		return heartbeat.Run(groupCtx)
	})

	return group.Wait()
}
