package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"spa-booking-backend/config"
	"spa-booking-backend/internal/api"
	"spa-booking-backend/internal/auth"
	"spa-booking-backend/internal/cache"
	"spa-booking-backend/internal/db"
	"spa-booking-backend/internal/notification"
	"spa-booking-backend/internal/reminder"
	"spa-booking-backend/internal/store"
)

const (
	shutdownTimeout      = 5 * time.Second
	limiterPruneInterval = time.Minute
	limiterIdle          = 10 * time.Minute
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serves the booking api",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(parent context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		log.Warn("VAPID keys are not configured, push delivery will fail until they are set")
	}
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return err
	}

	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}
	appStore := store.NewGormStore(gormDB)
	log.Info("data store initialized")

	subs, closeSubs, err := openSubscriptionStore(ctx, cfg, appStore, log)
	if err != nil {
		return err
	}
	defer closeSubs()

	keyed, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	dispatcher := notification.NewDispatcher(cfg.WorkerPool, subs, notification.NewWebPushSender(&cfg.Push), log)
	dispatcher.Start(ctx)

	reminders := reminder.NewService(cfg.Reminder, appStore, dispatcher, log)
	go reminders.Run(ctx)

	limiter := api.NewLimiter(cfg.Server)
	go limiter.PruneEvery(ctx, limiterPruneInterval, limiterIdle)

	router := api.NewRouter(api.Deps{
		Store:         appStore,
		Subscriptions: subs,
		Cache:         keyed,
		Tokens:        tokens,
		Notifier:      dispatcher,
		Config:        cfg,
		Log:           log,
		Limiter:       limiter,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping services...")
	case err := <-errCh:
		if err != nil {
			stop()
			dispatcher.Wait()
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}
	dispatcher.Wait()

	log.Info("server gracefully stopped")
	return nil
}

func openSubscriptionStore(ctx context.Context, cfg *config.Config, sqlStore store.SubscriptionStore, log *zap.SugaredLogger) (store.SubscriptionStore, func(), error) {
	switch cfg.Push.Store {
	case "sql":
		return sqlStore, func() {}, nil
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		mongoStore, err := store.NewMongoSubscriptionStore(connectCtx, cfg.Push.MongoURI, cfg.Push.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		log.Infow("push subscriptions stored in mongo", "database", cfg.Push.MongoDB)
		return mongoStore, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := mongoStore.Close(closeCtx); err != nil {
				log.Warnw("failed to disconnect mongo", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported push store %q", cfg.Push.Store)
	}
}

func openCache(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (cache.Cache, func(), error) {
	switch cfg.Cache.Backend {
	case "memory":
		ttl := cfg.Cache.AvailabilityTTL
		return cache.NewMemory(ttl, 2*ttl), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		log.Infow("using redis cache", "addr", cfg.Cache.RedisAddr)
		return cache.NewRedis(client, "spa", cfg.Cache.AvailabilityTTL), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}
}
