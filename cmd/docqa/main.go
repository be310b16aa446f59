package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/helix-labs/docqa/internal/chunker"
	"github.com/helix-labs/docqa/internal/config"
	dbRedis "github.com/helix-labs/docqa/internal/db/redis"
	"github.com/helix-labs/docqa/internal/embedding"
	"github.com/helix-labs/docqa/internal/index/memory"
	logpkg "github.com/helix-labs/docqa/internal/logger"
	"github.com/helix-labs/docqa/internal/metrics"
	indexrepo "github.com/helix-labs/docqa/internal/repository/index"
	chiTransport "github.com/helix-labs/docqa/internal/transport/chi"
	"github.com/helix-labs/docqa/internal/transport/ollama"
	openaiTransport "github.com/helix-labs/docqa/internal/transport/openai"
	answeruc "github.com/helix-labs/docqa/internal/usecase/answer"
	ingestuc "github.com/helix-labs/docqa/internal/usecase/ingest"
	retrieveuc "github.com/helix-labs/docqa/internal/usecase/retrieve"
	"github.com/helix-labs/docqa/internal/version"
)

// chunkIndex is the full contract both index drivers satisfy.
type chunkIndex interface {
	ingestuc.Index
	retrieveuc.Index
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docqa API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_driver", cfg.Index.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	vectorDim := cfg.Embedding.Remote.Dimensions
	if vectorDim == 0 {
		vectorDim = cfg.Embedding.FallbackDimensions
	}

	// Index driver selection
	ctx := context.Background()
	var index chunkIndex
	var pinger chiTransport.Pinger

	switch cfg.Index.Driver {
	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Index.Addrs,
			Password: cfg.Index.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Index.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		logger.Info("Connected to redis")

		index = indexrepo.New(store, cfg.Index.KeyPrefix, vectorDim)
		pinger = store
	case "memory":
		index = memory.New()
	default:
		logger.Fatal("Unknown index driver", zap.String("driver", cfg.Index.Driver))
	}

	// Embedding tier chain: remote, then local, then the hash fallback that
	// NewTiered always appends.
	var tiers []embedding.Tier
	if cfg.Embedding.Remote.APIKey != "" {
		tiers = append(tiers, openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
			APIKey:     cfg.Embedding.Remote.APIKey,
			BaseURL:    cfg.Embedding.Remote.BaseURL,
			Model:      cfg.Embedding.Remote.Model,
			Dimensions: cfg.Embedding.Remote.Dimensions,
			Logger:     logger,
		}))
	}
	if cfg.Embedding.Local.BaseURL != "" {
		tiers = append(tiers, ollama.NewEmbedder(ollama.Config{
			BaseURL: cfg.Embedding.Local.BaseURL,
			Model:   cfg.Embedding.Local.Model,
			Timeout: time.Duration(cfg.Embedding.Local.TimeoutSec) * time.Second,
		}))
	}
	embedder := embedding.NewTiered(tiers, logger)
	logger.Info("Embedding chain assembled",
		zap.Int("tiers", len(tiers)+1),
		zap.Bool("remote", cfg.Embedding.Remote.APIKey != ""),
		zap.Bool("local", cfg.Embedding.Local.BaseURL != ""),
	)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Logger:  logger,
	})

	// Use case services
	ingestSvc := ingestuc.New(
		index,
		chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		embedder,
		cfg.RAG.MinContentLength,
	)
	retrieveSvc := retrieveuc.New(index, embedder, cfg.RAG.TopK)
	answerSvc := answeruc.New(retrieveSvc, generator, answeruc.Config{
		TopK:             cfg.RAG.TopK,
		MaxContextLength: cfg.RAG.MaxContextLength,
		MaxAttempts:      cfg.Generation.MaxAttempts,
		RetryBackoff:     time.Duration(cfg.Generation.RetryBackoffMS) * time.Millisecond,
	})

	server := chiTransport.NewServer(ingestSvc, answerSvc, pinger, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)
	r.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
