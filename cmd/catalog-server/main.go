// cmd/catalog-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"catalog-enrichment/internal/api"
	"catalog-enrichment/internal/common/aws"
	"catalog-enrichment/internal/common/config"
	"catalog-enrichment/internal/common/database"
	"catalog-enrichment/internal/common/genai"
	commonhttp "catalog-enrichment/internal/common/http"
	"catalog-enrichment/internal/common/logger"
	"catalog-enrichment/internal/common/observability"
	"catalog-enrichment/internal/models"
	"catalog-enrichment/internal/search"
	"catalog-enrichment/internal/store"

	ep "catalog-enrichment/internal/workers/enrichment/enrich-product"
	pej "catalog-enrichment/internal/workers/enrichment/process-enrichment-job"
)

const shutdownTimeout = 30 * time.Second

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func newLogger(cfg config.LoggingConfig) *zap.Logger {
	if !cfg.File.Enabled {
		return logger.New(cfg.Level, cfg.Format)
	}
	return logger.NewWithFile(cfg.Level, cfg.Format, logger.FileOptions{
		Filename:   cfg.File.Filename,
		MaxSize:    cfg.File.MaxSize,
		MaxBackups: cfg.File.MaxBackups,
		MaxAge:     cfg.File.MaxAge,
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := newLogger(cfg.Logging)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting catalog server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if err := database.Migrate(ctx, pg.DB); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Optional Elasticsearch product index ---
	var productIndex *search.ProductIndex
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		productIndex = search.NewProductIndex(esClient, cfg.Database.Elasticsearch.Index, log)
		if err := productIndex.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("search index setup failed", zap.Error(err))
		}
		version, _ := esClient.Version(ctx)
		zapLog.Info("Elasticsearch connected successfully", zap.String("version", version))
	}

	// --- Repositories ---
	attributeStore := store.NewAttributeStore(pg.DB)
	productStore := store.NewProductStore(pg.DB)
	jobCache := store.NewJobCache(redis.Client, time.Duration(cfg.Enrichment.JobCacheTTL)*time.Second)
	jobStore := store.NewCachedJobStore(store.NewJobStore(pg.DB), jobCache, log)

	if productIndex != nil {
		products, err := productStore.List(ctx, models.ProductFilter{})
		if err != nil {
			zapLog.Fatal("failed to load products for indexing", zap.Error(err))
		}
		n, err := productIndex.Sync(ctx, products)
		if err != nil {
			zapLog.Warn("search index sync incomplete", zap.Int("indexed", n), zap.Error(err))
		} else {
			zapLog.Info("search index synced", zap.Int("indexed", n))
		}
	}

	// --- External Service Clients ---
	ai, err := genai.NewClient(cfg.APIs.GenAI, commonhttp.NewClient(config.GetDuration(cfg.APIs.GenAI.Timeout)))
	if err != nil {
		zapLog.Fatal("failed to create AI client", zap.Error(err))
	}

	var publisher pej.EventPublisher
	if cfg.Notifications.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.SNS.Region, cfg.Notifications.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("failed to create SNS client", zap.Error(err))
		}
		publisher = snsClient
		zapLog.Info("Job events enabled", zap.String("topicArn", cfg.Notifications.SNS.TopicARN))
	}

	// --- Enrichment pipeline ---
	jobConfig := pej.NewConfig(cfg)
	dispatcher, err := pej.NewDispatcher(jobConfig.PoolSize, log)
	if err != nil {
		zapLog.Fatal("failed to create enrichment pool", zap.Error(err))
	}

	enricher := ep.NewHandler(ep.NewConfig(cfg.APIs.GenAI), ai, log)
	jobs := pej.NewHandler(jobConfig, pej.Dependencies{
		Jobs:       jobStore,
		Products:   productStore,
		Attributes: attributeStore,
		Enricher:   enricher,
		Pool:       dispatcher,
		Publisher:  publisher,
	}, obs, log)

	if n, err := jobs.RecoverInterrupted(ctx); err != nil {
		zapLog.Fatal("failed to recover interrupted jobs", zap.Error(err))
	} else if n > 0 {
		zapLog.Warn("Interrupted enrichment jobs marked failed", zap.Int("count", n))
	}

	scheduler := pej.NewScheduler(jobs, jobConfig.CleanupSchedule, log)
	if err := scheduler.Start(); err != nil {
		zapLog.Fatal("failed to start retention scheduler", zap.Error(err))
	}
	zapLog.Info("Enrichment pipeline ready", zap.Int("poolSize", dispatcher.Capacity()))

	// --- HTTP servers ---
	deps := api.Dependencies{
		Products:   productStore,
		Attributes: attributeStore,
		Enrichment: jobs,
	}
	if productIndex != nil {
		deps.Search = productIndex
	}
	server := api.NewServer(cfg.Server, deps, log)

	ops := api.NewOpsServer(cfg.Server.OpsPort, map[string]api.HealthCheck{
		"postgres": pg.Ping,
		"redis":    redis.Ping,
	}, log)

	errCh := make(chan error, 2)
	go func() { errCh <- server.Start() }()
	go func() { errCh <- ops.Start() }()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		zapLog.Info("Shutdown signal received, stopping server...")
	case err := <-errCh:
		if err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping API server", zap.Error(err))
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping ops server", zap.Error(err))
	}
	scheduler.Stop()
	if err := dispatcher.Release(shutdownTimeout); err != nil {
		zapLog.Warn("Enrichment jobs still running at shutdown", zap.Error(err))
	}

	zapLog.Info("Catalog server stopped gracefully")
}
