package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/fedsearch/internal/config"
	dbMongo "github.com/kailas-cloud/fedsearch/internal/db/mongo"
	dbRedis "github.com/kailas-cloud/fedsearch/internal/db/redis"
	"github.com/kailas-cloud/fedsearch/internal/domain"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/fedsearch/internal/logger"
	"github.com/kailas-cloud/fedsearch/internal/metrics"
	collectionrepo "github.com/kailas-cloud/fedsearch/internal/repository/collection"
	documentrepo "github.com/kailas-cloud/fedsearch/internal/repository/document"
	"github.com/kailas-cloud/fedsearch/internal/repository/searchcache"
	templaterepo "github.com/kailas-cloud/fedsearch/internal/repository/template"
	chiTransport "github.com/kailas-cloud/fedsearch/internal/transport/chi"
	"github.com/kailas-cloud/fedsearch/internal/transport/solr"
	collectionuc "github.com/kailas-cloud/fedsearch/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/fedsearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/fedsearch/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/fedsearch/internal/usecase/search"
	templateuc "github.com/kailas-cloud/fedsearch/internal/usecase/template"
	"github.com/kailas-cloud/fedsearch/internal/version"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting fedsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
		zap.String("solr", cfg.Solr.BaseURL),
		zap.String("mongo_db", cfg.Mongo.Database),
	)

	domain.KeyPrefix = cfg.Cache.KeyPrefix
	ctx := context.Background()

	cache, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:       cfg.Cache.Addrs,
		Username:    cfg.Cache.Username,
		Password:    cfg.Cache.Password,
		DB:          cfg.Cache.DB,
		Standalone:  cfg.Cache.Standalone,
		DialTimeout: time.Duration(cfg.Cache.DialTimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer cache.Close()

	if err := cache.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache not ready", zap.Error(err))
	}
	logger.Info("Connected to cache")

	docs, err := dbMongo.NewStore(ctx, dbMongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  time.Duration(cfg.Mongo.TimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create document store", zap.Error(err))
	}
	if err := docs.WaitForReady(ctx, time.Duration(cfg.Mongo.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Document store not ready", zap.Error(err))
	}
	logger.Info("Connected to document store")

	metrics.RegisterDomainMetrics()

	engine, err := solr.New(solr.Config{
		BaseURL:         cfg.Solr.BaseURL,
		Timeout:         time.Duration(cfg.Solr.TimeoutSec) * time.Second,
		MaxRetries:      cfg.Solr.MaxRetries,
		BreakerFailures: cfg.Solr.BreakerFailures,
		BreakerOpen:     time.Duration(cfg.Solr.BreakerOpenSec) * time.Second,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("Failed to create search engine client", zap.Error(err))
	}

	// Repositories
	collRepo := collectionrepo.New(cache)
	tmplRepo := templaterepo.New(cache)
	docRepo := documentrepo.New(docs)
	cachedEngine := searchcache.New(
		engine, cache, time.Duration(cfg.Search.CacheTTLSec)*time.Second,
		metrics.SearchCacheTotal, logger,
	)

	// Use cases
	tmplSvc := templateuc.New(tmplRepo)
	searchSvc := searchuc.New(cachedEngine, tmplSvc, cfg.Search.MaxFanOut, metrics.SearchCollectionErrorsTotal)
	ingestSvc := ingestuc.New(collRepo, docRepo, ingestuc.Config{
		MaxInFlight:      cfg.Ingest.MaxInFlight,
		WriteTimeout:     time.Duration(cfg.Ingest.WriteTimeoutSec) * time.Second,
		ProgressInterval: cfg.Ingest.ProgressInterval(),
		Grace:            cfg.Ingest.Grace(),
		MaxJSONBytes:     cfg.Ingest.MaxJSONBytes,
	}, logger)
	collSvc := collectionuc.New(collRepo)
	healthSvc := healthuc.New(
		healthuc.Component{Name: "cache", Pinger: cache},
		healthuc.Component{Name: "mongo", Pinger: docs},
		healthuc.Component{Name: "solr", Pinger: engine},
	)

	if err := os.MkdirAll(cfg.Ingest.UploadDir, 0o750); err != nil {
		logger.Fatal("Failed to create upload dir", zap.String("dir", cfg.Ingest.UploadDir), zap.Error(err))
	}

	server := chiTransport.NewServer(chiTransport.Services{
		Search:      searchSvc,
		Ingest:      ingestSvc,
		Collections: collSvc,
		Templates:   tmplSvc,
		Health:      healthSvc,
	}, chiTransport.Options{
		Limits:         request.Limits{Default: cfg.Search.DefaultLimit, Max: cfg.Search.MaxLimit},
		UploadDir:      cfg.Ingest.UploadDir,
		MaxUploadBytes: cfg.Ingest.MaxUploadBytes,
		Heartbeat:      cfg.Ingest.Heartbeat(),
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	// Upload and progress handlers lift their own deadlines.
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

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
	if err := ingestSvc.Wait(shutdownCtx); err != nil {
		logger.Warn("Ingestion jobs still running at shutdown", zap.Error(err))
	}
	if err := docs.Close(shutdownCtx); err != nil {
		logger.Error("Error closing document store", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// one line per request; streams log when they close
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
