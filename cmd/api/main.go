package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/campusattend/attendance/internal/attendance"
	"github.com/campusattend/attendance/internal/config"
	"github.com/campusattend/attendance/internal/course"
	"github.com/campusattend/attendance/internal/handler"
	"github.com/campusattend/attendance/internal/logger"
	"github.com/campusattend/attendance/internal/queue"
	"github.com/campusattend/attendance/internal/repository"
	"github.com/campusattend/attendance/internal/session"
	"github.com/campusattend/attendance/internal/store"
	"github.com/campusattend/attendance/internal/tally"
	"github.com/campusattend/attendance/internal/user"
)

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
	slog.SetDefault(lg)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runHTTP(ctx, cfg, lg); err != nil {
		lg.Error("http server failed", "err", err)
		os.Exit(1)
	}
}

func runHTTP(ctx context.Context, cfg config.App, lg *slog.Logger) error {
	health := map[string]func(context.Context) bool{}

	repos, db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		health["db"] = func(ctx context.Context) bool { return db.PingContext(ctx) == nil }
	}

	var redisClient *store.Redis
	if cfg.QueueBackend == "redis" || cfg.TallyBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		health["redis"] = redisClient.Healthy
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(1024)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	var live tally.Store
	if cfg.TallyBackend == "memory" {
		live = tally.NewMemoryStore()
	} else {
		live = tally.NewRedisStore(redisClient.Client)
	}

	// With an in-process queue nobody else can drain it.
	if cfg.QueueBackend == "memory" {
		go func() {
			if err := tally.NewConsumer(live, lg).Run(ctx, q); err != nil {
				lg.Error("tally consumer failed", "err", err)
			}
		}()
	} else if cfg.TallyBackend == "memory" {
		lg.Warn("live tally is process-local but events go to redis; run cmd/worker with TALLY_BACKEND=redis instead")
	}

	sessions := session.NewService(repos, q, lg)
	h := handler.New(handler.Services{
		Users:      user.NewService(repos.Users, lg),
		Courses:    course.NewService(repos, q, lg),
		Sessions:   sessions,
		Attendance: attendance.NewService(repos, sessions, q, lg),
		Tally:      live,
	}, lg)

	r := handler.NewRouter(h, handler.RouterConfig{
		SigningKey:             cfg.JWTSigningKey,
		Issuer:                 cfg.JWTIssuer,
		CORSOrigins:            cfg.CORSOrigins,
		RateLimitPerMin:        cfg.RateLimitPerMin,
		CheckInRateLimitPerMin: cfg.CheckInRateLimitPerMin,
		Health:                 health,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("starting server", "addr", srv.Addr, "storage", cfg.StorageBackend, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	lg.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("server forced shutdown", "err", err)
	}
	lg.Info("server exited")
	return nil
}

// openStore returns the configured repositories. db is nil for the memory
// backend.
func openStore(ctx context.Context, cfg config.App) (repository.Store, *sqlx.DB, error) {
	if cfg.StorageBackend == "memory" {
		return repository.NewMemoryStore(), nil, nil
	}
	db, err := store.NewDB(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return repository.Store{}, nil, fmt.Errorf("db connect: %w", err)
	}
	if err := repository.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return repository.Store{}, nil, fmt.Errorf("migrate: %w", err)
	}
	return repository.NewSQLStore(db), db, nil
}
