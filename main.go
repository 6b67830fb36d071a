package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github/itish2003/docqa/config"
	"github/itish2003/docqa/controller"
	"github/itish2003/docqa/logger"
	"github/itish2003/docqa/services"
	"github/itish2003/docqa/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("FATAL: Failed to create logger: %v", err)
	}

	os.Exit(finish(zlog, run(cfg, zlog)))
}

// finish logs the outcome of run, flushes the logger and returns the process
// exit code. os.Exit skips deferred calls, so the flush happens here.
func finish(zlog *zap.Logger, err error) int {
	code := 0
	if err != nil {
		zlog.Error("server stopped", zap.Error(err))
		code = 1
	}
	zlog.Sync() //nolint:errcheck // stderr sync errors are expected
	return code
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.UnidocLicenseKey != "" {
		if err := services.ConfigurePDFLicense(cfg.UnidocLicenseKey); err != nil {
			return err
		}
	} else {
		zlog.Warn("UNIDOC_LICENSE_KEY not set, PDF extraction will fail")
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	embedder := services.NewOllamaEmbedder(httpClient, cfg.Embedding.BaseURL, cfg.Embedding.ModelName, cfg.Embedding.Dimension)

	connect, closeIndex := newStoreConnector(cfg, zlog)
	defer closeIndex()
	index := services.NewVectorIndex(embedder, connect, cfg.Pipeline.IngestBatchSize, zlog)
	if err := index.Init(ctx); err != nil {
		zlog.Warn("vector index unavailable, answering in general mode only", zap.Error(err))
	}

	llm, err := newLanguageModel(ctx, cfg)
	if err != nil {
		return err
	}
	if llm == nil {
		zlog.Warn("LLM_API_KEY not set, questions will not be answered")
	}

	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	files, err := services.NewFileActions(cfg.Server.UploadDir)
	if err != nil {
		return err
	}

	chunker := services.NewChunker(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	ingestion := services.NewIngestionService(chunker, index, zlog)
	ragService := services.NewRAGService(index, llm, db, cfg.Pipeline.RetrievalK, zlog)
	ragController := controller.NewRAGController(db, ragService, ingestion, index, files, zlog)

	if cfg.Server.WatchDir != "" {
		watcher := services.NewWatcherService(ingestion, index, cfg.Server.WatchScope, zlog)
		go func() {
			if err := watcher.Run(ctx, cfg.Server.WatchDir); err != nil {
				zlog.Error("WATCHER: stopped", zap.Error(err))
			}
		}()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(zlog), cors())
	ragController.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("addr", "http://localhost:"+cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newStoreConnector picks the vector index backend. A chroma backend without
// credentials yields a nil connector, which leaves the index unconfigured.
func newStoreConnector(cfg *config.Config, zlog *zap.Logger) (services.StoreConnector, func()) {
	if !cfg.RAGEnabled() {
		return nil, func() {}
	}
	if cfg.VectorIndex.Backend == "memory" {
		return func(context.Context) (services.VectorStore, error) {
			return services.NewMemoryStore(cfg.Embedding.Dimension), nil
		}, func() {}
	}

	var closeFn func() error
	connect := func(ctx context.Context) (services.VectorStore, error) {
		client, collection, err := services.ConnectChroma(ctx, cfg.VectorIndex.URL, cfg.VectorIndex.APIKey, cfg.VectorIndex.Collection)
		if err != nil {
			return nil, err
		}
		closeFn = client.Close
		return services.NewChromaStore(collection, zlog), nil
	}
	return connect, func() {
		if closeFn == nil {
			return
		}
		if err := closeFn(); err != nil {
			zlog.Warn("failed to close chroma client", zap.Error(err))
		}
	}
}

func newLanguageModel(ctx context.Context, cfg *config.Config) (services.LanguageModel, error) {
	if !cfg.LLMEnabled() {
		return nil, nil
	}
	switch cfg.LLM.Provider {
	case "gemini":
		return services.NewGeminiModel(ctx, cfg.LLM.APIKey, cfg.LLM.ModelName, cfg.LLM.Temperature)
	default:
		return services.NewOpenAICompatibleModel(cfg.LLM.APIKey, cfg.LLM.ModelName, cfg.LLM.BaseURL, cfg.LLM.Temperature)
	}
}

func requestLogger(zlog *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zlog.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
