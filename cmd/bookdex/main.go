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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/openshelf/bookdex/internal/config"
	dbMysql "github.com/openshelf/bookdex/internal/db/mysql"
	dbRedis "github.com/openshelf/bookdex/internal/db/redis"
	logpkg "github.com/openshelf/bookdex/internal/logger"
	"github.com/openshelf/bookdex/internal/metrics"
	cacherepo "github.com/openshelf/bookdex/internal/repository/cache"
	catalogrepo "github.com/openshelf/bookdex/internal/repository/catalog"
	chiTransport "github.com/openshelf/bookdex/internal/transport/chi"
	"github.com/openshelf/bookdex/internal/transport/libgen"
	coveruc "github.com/openshelf/bookdex/internal/usecase/cover"
	downloaduc "github.com/openshelf/bookdex/internal/usecase/download"
	healthuc "github.com/openshelf/bookdex/internal/usecase/health"
	metadatauc "github.com/openshelf/bookdex/internal/usecase/metadata"
	searchuc "github.com/openshelf/bookdex/internal/usecase/search"
	"github.com/openshelf/bookdex/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting bookdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
	)

	ctx := context.Background()

	// The catalog is load-bearing: no catalog, no service.
	catalogClient, err := dbMysql.NewClient(dbMysql.Config{
		DSN:             cfg.Catalog.DSN,
		MaxOpenConns:    cfg.Catalog.MaxOpenConns,
		MaxIdleConns:    cfg.Catalog.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Catalog.ConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create catalog client", zap.Error(err))
	}
	defer catalogClient.Close()

	if err := catalogClient.WaitForReady(ctx, time.Duration(cfg.Catalog.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Catalog not ready", zap.Error(err))
	}
	logger.Info("Connected to catalog")

	// The cache is advisory: when Redis is unreachable the server starts
	// anyway and every lookup degrades to a miss.
	var cacheStore *dbRedis.Store
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		logger.Warn("Failed to create cache store, serving uncached", zap.Error(err))
	} else if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Warn("Cache not ready, serving uncached", zap.Error(err))
		store.Close()
	} else {
		cacheStore = store
		defer cacheStore.Close()
		logger.Info("Connected to cache")
	}

	metrics.RegisterCacheMetrics()

	var kv cacherepo.KV
	if cacheStore != nil {
		kv = cacheStore
	}
	cache := cacherepo.New(kv, metrics.CacheTotal, logger)

	upstream := libgen.New(libgen.Config{
		BaseURL:       cfg.Upstream.BaseURL,
		MirrorBaseURL: cfg.Upstream.MirrorBaseURL,
		Timeout:       time.Duration(cfg.Upstream.TimeoutSec) * time.Second,
		UserAgent:     cfg.Upstream.UserAgent,
	}, logger)

	catalogRepo := catalogrepo.New(catalogClient)

	searchSvc := searchuc.New(catalogRepo, cache, cfg.SearchTTL(), logger)
	metadataSvc := metadatauc.New(catalogRepo, upstream, cache,
		cfg.MetadataTTL(), cfg.DownloadLinksTTL(), logger)
	coverSvc := coveruc.New(upstream, cache, cfg.CoverTTL(), logger)
	downloadSvc := downloaduc.New(metadataSvc, upstream, cfg.Download.Dir,
		time.Duration(cfg.Download.MirrorTimeoutSec)*time.Second, logger)

	var cachePinger healthuc.CachePinger
	if cacheStore != nil {
		cachePinger = cacheStore
	}
	healthSvc := healthuc.New(catalogClient, cachePinger)

	server := chiTransport.NewServer(searchSvc, metadataSvc, coverSvc, downloadSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)
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
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
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

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
