package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/campusattend/attendance/internal/config"
	"github.com/campusattend/attendance/internal/logger"
	"github.com/campusattend/attendance/internal/queue"
	"github.com/campusattend/attendance/internal/store"
	"github.com/campusattend/attendance/internal/tally"
)

// Worker drains attendance events from redis into the live tally.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, closer, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer closer.Close()

	if cfg.QueueBackend != "redis" {
		lg.Error("worker needs QUEUE_BACKEND=redis; the memory queue is drained by the api process")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		lg.Warn("redis not reachable yet, consumer will retry", "addr", cfg.RedisAddr)
	}

	var live tally.Store
	if cfg.TallyBackend == "redis" {
		live = tally.NewRedisStore(redisClient.Client)
	} else {
		lg.Warn("TALLY_BACKEND=memory: counts stay inside the worker and are not visible to the api")
		live = tally.NewMemoryStore()
	}

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	if err := tally.NewConsumer(live, lg).Run(ctx, q); err != nil {
		lg.Error("queue consume failed", "err", err)
		os.Exit(1)
	}
	lg.Info("worker stopped")
}
