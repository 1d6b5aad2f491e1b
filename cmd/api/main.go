package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"roomclean/internal/config"
	"roomclean/internal/database"
	"roomclean/internal/lock"
	"roomclean/internal/modules/notification"
	"roomclean/internal/pkg/clock"
	"roomclean/internal/pkg/logger"
	"roomclean/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	lg := logger.L()

	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("database connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		lg.Fatal("database migrate failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := server.Options{
		Config: cfg,
		DB:     db,
		Log:    lg,
		Clock:  clock.System{},
		Locker: lock.NewMemoryLocker(cfg.LockWait),
	}

	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			lg.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			lg.Fatal("redis ping failed", zap.Error(err))
		}
		opts.Locker = lock.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait, lg.Named("lock"))
		opts.Cache = rdb
		lg.Info("redis enabled for order locks and catalog cache")
	}

	if cfg.AMQPURL != "" {
		pub, err := notification.NewRabbitPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			lg.Fatal("amqp connect failed", zap.Error(err))
		}
		defer pub.Close()
		opts.Publisher = pub
		lg.Info("amqp notification fan-out enabled", zap.String("exchange", cfg.AMQPExchange))
	}

	app := server.New(opts)
	app.StartBackground(ctx)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: app.Router,
	}
	go func() {
		lg.Info("api listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown failed", zap.Error(err))
	}
	app.Hub.Close()
}
