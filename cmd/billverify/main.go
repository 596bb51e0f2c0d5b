// Command billverify is the composition root for the bill-verification
// backbone: it wires config, the Postgres-backed state store, the rate
// catalog, the LLM arbiter, the upload pipeline and retention workers,
// and the caller-facing HTTP surface together, mirroring the teacher's
// own cmd/kubernaut entrypoint shape. It is deliberately thin and
// contains no business logic of its own (SPEC_FULL.md's "minimal
// cmd/billverify entrypoint").
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/zapr"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Aviraj-Roy/billverify/internal/config"
	"github.com/Aviraj-Roy/billverify/internal/database"
	"github.com/Aviraj-Roy/billverify/internal/httpapi"
	"github.com/Aviraj-Roy/billverify/pkg/catalog"
	"github.com/Aviraj-Roy/billverify/pkg/embedding"
	"github.com/Aviraj-Roy/billverify/pkg/llmarbiter"
	"github.com/Aviraj-Roy/billverify/pkg/matcher"
	"github.com/Aviraj-Roy/billverify/pkg/metrics"
	"github.com/Aviraj-Roy/billverify/pkg/ocr"
	"github.com/Aviraj-Roy/billverify/pkg/pipeline"
	"github.com/Aviraj-Roy/billverify/pkg/retention"
	"github.com/Aviraj-Roy/billverify/pkg/store"
	"github.com/Aviraj-Roy/billverify/pkg/verifier"
)

func main() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer zapLogger.Sync()
	logger := zapr.NewLogger(zapLogger)

	cfg := config.DefaultConfig()
	if overridePath := os.Getenv("BILLVERIFY_CONFIG_FILE"); overridePath != "" {
		if err := cfg.LoadOverridesFromFile(overridePath); err != nil {
			logger.Error(err, "billverify: load config overrides")
			os.Exit(1)
		}
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Error(err, "billverify: invalid configuration")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error(err, "billverify: connect to store")
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool, cfg.Store)
	if err := st.EnsureSchema(ctx); err != nil {
		logger.Error(err, "billverify: ensure schema")
		os.Exit(1)
	}

	embeddingBackend := buildEmbeddingBackend(cfg.Catalog)
	embeddingCache := embedding.NewDiskCache(cfg.Catalog.EmbeddingCache)

	cat := catalog.New(cfg.Catalog.Directory, embeddingBackend, embeddingCache, logger)
	if err := cat.Load(ctx); err != nil {
		logger.Error(err, "billverify: load rate catalog")
		os.Exit(1)
	}

	chatBackend := llmarbiter.NewAnthropicBackend(cfg.LLM.APIKey)
	arbiter := llmarbiter.New(chatBackend, cfg.LLM)

	m := matcher.New(cfg.Matcher)
	v := verifier.New(cat, m, arbiter, cfg.Matcher, logger)

	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
	}

	ocrEngine := ocr.NewStubEngine()
	pl := pipeline.New(st, ocrEngine, v, redisClient, cfg.Pipeline, logger)
	retentionWorker := retention.New(st, cfg.Retention, logger)

	go pl.Run(ctx)
	go retentionWorker.Run(ctx)

	metricsServer := metrics.NewServer(cfg.HTTP.MetricsAddr, logger)
	metricsServer.StartAsync()

	server := httpapi.New(st, pl, v, cat, cfg.HTTP, logger)
	httpServer := &http.Server{Addr: cfg.HTTP.Addr, Handler: server.Handler()}

	go func() {
		logger.Info("billverify: http server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(err, "billverify: http server stopped unexpectedly")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("billverify: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "billverify: http server shutdown")
	}
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		logger.Error(err, "billverify: metrics server shutdown")
	}
}

// buildEmbeddingBackend chooses the remote embedding server when
// EMBEDDING_ENDPOINT is configured, otherwise falls back to the local
// deterministic backend (spec.md §6's embed collaborator is pluggable by
// design — see pkg/embedding).
func buildEmbeddingBackend(cfg *config.CatalogConfig) embedding.Backend {
	if endpoint := os.Getenv("EMBEDDING_ENDPOINT"); endpoint != "" {
		return embedding.NewHTTPBackend(endpoint, cfg.EmbeddingModel, 256, 10*time.Second)
	}
	return embedding.NewLocalBackend(256)
}
