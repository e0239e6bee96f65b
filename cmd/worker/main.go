package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"cellscope/internal/cache"
	"cellscope/internal/config"
	"cellscope/internal/database"
	"cellscope/internal/log"
	"cellscope/internal/queue"
	"cellscope/internal/repository"
	"cellscope/internal/storage"
	"cellscope/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker")

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	var store *storage.ObjectStore
	if cfg.Storage.Enabled {
		store, err = storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := store.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure bucket failed")
		}
	}

	uploads := repository.NewUploadRepository(dbPool)
	processor := tasks.NewProcessor(uploads, store, cfg, logger)
	consumer := queue.NewConsumer(
		redisClient,
		cfg.Redis.Stream,
		cfg.Redis.Group,
		cfg.Redis.Consumer,
		cfg.Maintenance.ClaimInterval,
		logger,
		processor,
	)
	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to create consumer group")
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := consumer.Start(runCtx); err != nil && err != context.Canceled {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-runCtx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
