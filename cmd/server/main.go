package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "quickpoll/docs"
	"quickpoll/internal/config"
	"quickpoll/internal/domain/poll"
	api "quickpoll/internal/http"
	"quickpoll/internal/metrics"
	"quickpoll/internal/platform/database"
	"quickpoll/internal/platform/password"
	"quickpoll/internal/repository/memory"
	mongorepo "quickpoll/internal/repository/mongo"
	"quickpoll/internal/repository/postgres"
	redisrepo "quickpoll/internal/repository/redis"
	"quickpoll/internal/repository/sqlite"
	"quickpoll/internal/worker"
)

type store interface {
	poll.Repository
	api.Pinger
}

// @title           QuickPoll API
// @version         1.0
// @description     Anonymous polls with live results and password-protected option edits
// @BasePath        /api
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config error", "error", err)
		os.Exit(1)
	}

	metrics.Register()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	repo, closer, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("store connect error", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closer.Close()
	logger.Info("store ready", "driver", cfg.StoreDriver)

	pollSvc := poll.NewService(repo, password.NewBcrypt(cfg.BcryptCost))

	events := make(chan worker.PollEvent, 100)
	activity := worker.NewActivityWorker(events, logger)
	go activity.Run(ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(pollSvc, repo, events),
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

func openStore(ctx context.Context, cfg config.Config) (store, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.DB_DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.CreateSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		return postgres.NewPollRepo(db), db, nil

	case config.DriverSQLite:
		db, err := database.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlite.CreateSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("sqlite schema: %w", err)
		}
		return sqlite.NewPollRepo(db), db, nil

	case config.DriverMongo:
		client, err := database.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		disconnect := closeFunc(func() error { return client.Disconnect(context.Background()) })
		return mongorepo.NewPollRepo(client.Database(cfg.MongoDatabase)), disconnect, nil

	case config.DriverRedis:
		rdb, err := database.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return redisrepo.NewPollRepo(rdb), rdb, nil

	default:
		return memory.NewPollRepo(), closeFunc(func() error { return nil }), nil
	}
}
