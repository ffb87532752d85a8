package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/clinical-scoring-server/internal/api"
	"github.com/clinical-scoring-server/internal/audit"
	"github.com/clinical-scoring-server/internal/cache"
	"github.com/clinical-scoring-server/internal/config"
	"github.com/clinical-scoring-server/internal/scoring"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	engine, err := scoring.NewEngine(logger, cfg.Cache.MemoizationSize)
	if err != nil {
		logger.Fatalf("Failed to create scoring engine: %v", err)
	}

	store, err := newStore(configManager)
	if err != nil {
		logger.Fatalf("Failed to open audit store: %v", err)
	}
	defer store.Close()

	var recordCache api.RecordCache
	if cfg.Cache.RedisEnabled {
		redisCache, err := cache.NewRecordCache(cfg.Cache)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		recordCache = redisCache
	}

	logger.WithFields(logrus.Fields{
		"host":     cfg.Server.Host,
		"port":     cfg.Server.Port,
		"storage":  cfg.Storage.Driver,
		"profiles": engine.Profiles(),
	}).Info("Starting clinical scoring server")

	server := api.NewServer(configManager, engine, store, recordCache, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}

// newLogger builds the application logger from the logging configuration.
func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// newStore opens the audit store selected by the storage driver.
func newStore(configManager *config.Manager) (audit.Store, error) {
	storage := configManager.GetStorageConfig()
	switch storage.Driver {
	case "postgres":
		return audit.NewPostgresStoreFromURL(configManager.GetPostgresConnectionString())
	default:
		return audit.NewSQLiteStore(storage.Path)
	}
}
