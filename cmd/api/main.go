package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"candlestand-api/internal/cache"
	"candlestand-api/internal/config"
	"candlestand-api/internal/handler"
	"candlestand-api/internal/middleware"
	"candlestand-api/internal/repository"
	"candlestand-api/internal/router"
	"candlestand-api/internal/service"
	"candlestand-api/internal/session"
	"candlestand-api/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()

	level := cfg.App.LogLevel
	if level == "" && cfg.App.Debug {
		level = "debug"
	}
	log, err := logger.New(cfg.App.Environment, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment))

	if err := run(cfg, log); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *zap.Logger) error {
	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	defaults, err := cfg.Session.LoadStandDefaults()
	if err != nil {
		return err
	}

	registry := session.NewRegistry()
	defer func() {
		log.Info("session timers stopped", zap.Int("count", registry.StopAll()))
	}()

	stands := service.NewStandService(store, registry, service.Config{
		LivenessWindow:     cfg.Session.LivenessWindow,
		ConfirmationWindow: cfg.Session.ConfirmationWindow,
		StoreTimeout:       cfg.Session.StoreTimeout,
		Defaults:           defaults,
	}, log)

	sweeper := service.NewSessionSweeper(registry, service.SweepConfig{
		IdleThreshold: cfg.Session.IdleThreshold,
		Interval:      cfg.Session.SweepInterval,
	}, log)
	sweeper.Start()
	defer sweeper.Stop()

	r := router.New(router.Config{
		Logger:          log,
		CORSOrigins:     cfg.Server.CORSOrigins,
		Handler:         handler.New(cfg.App.Name, cfg.App.Version, store),
		StandHandler:    handler.NewStandHandler(stands, log),
		AdminHandler:    handler.NewAdminHandler(store, stands, cfg.Store.Type),
		AdminMiddleware: middleware.NewLoginKeyMiddleware(cfg.App.LoginKey),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(ctx)
}

// openStore opens the configured store backend and wraps it in the stand cache.
func openStore(cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	var store repository.Store
	var err error

	switch cfg.Store.Type {
	case config.StoreMongoDB:
		store, err = repository.NewMongoDBStore(cfg.Store.MongoURI, cfg.Store.MongoDatabase, log)
	case config.StorePostgres:
		store, err = repository.NewPostgresStore(cfg.Store.PostgresDSN(), log)
	case config.StoreMySQL:
		store, err = repository.NewMySQLStore(cfg.Store.MySQLDSN(), log)
	case config.StoreMemory:
		store = repository.NewMemoryStore()
	default:
		if dir := filepath.Dir(cfg.Store.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		store, err = repository.NewSQLiteStore(cfg.Store.Path, log)
	}
	if err != nil {
		return nil, err
	}
	log.Info("store initialized", zap.String("type", cfg.Store.Type))

	var c cache.Cache
	switch cfg.Cache.Type {
	case config.CacheRedis:
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.RedisPrefix,
		}, log)
		if err != nil {
			log.Warn("redis unavailable, falling back to memory cache", zap.Error(err))
			c = cache.NewMemoryCache(cache.DefaultCleanupInterval)
		} else {
			c = redisCache
		}
	case config.CacheMemory:
		c = cache.NewMemoryCache(cache.DefaultCleanupInterval)
	default:
		return store, nil
	}

	return repository.NewCachedStore(store, c, cfg.Cache.TTL, log), nil
}
