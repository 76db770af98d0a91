// Package main is the entry point for the API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carryon-collective/carryon/internal/api"
	"github.com/carryon-collective/carryon/internal/auth"
	"github.com/carryon-collective/carryon/internal/config"
	"github.com/carryon-collective/carryon/internal/health"
	"github.com/carryon-collective/carryon/internal/middleware"
	"github.com/carryon-collective/carryon/internal/search"
	"github.com/carryon-collective/carryon/internal/tracing"
	"github.com/carryon-collective/carryon/internal/trip"
)

const serviceName = "carryon-api"

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("CarryOn API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if cfg == nil {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	// Initialize logger
	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if len(errs) > 0 {
		for _, err := range errs {
			logger.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("configuration loaded", "config", cfg.LogSummary())

	// Initialize tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Connect to Postgres when configured; the in-memory repository keeps
	// development setups working without a database.
	var (
		db        *sql.DB
		repo      trip.TripRepository
		dbChecker api.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		repo = trip.NewPostgresTripRepository(db, logger)
		dbChecker = health.NewDBChecker(db)
		logger.Info("using postgres trip repository")
	} else {
		repo = trip.NewInMemoryTripRepository()
		logger.Warn("DATABASE_URL not set, using in-memory trip repository")
	}

	// Metrics registry with the HTTP and search collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	searchMetrics := search.NewMetrics()
	if err := searchMetrics.Register(registry); err != nil {
		logger.Error("failed to register search metrics", "error", err)
		os.Exit(1)
	}

	// Rate limit store: Redis when configured, in-memory otherwise
	var (
		rateLimitStore middleware.RateLimitStore
		redisChecker   api.HealthChecker
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient).
			WithMetrics(httpMetrics).
			WithLogger(logger)
		redisChecker = health.NewRedisChecker(redisClient)
		logger.Info("using redis rate limit store", "addr", cfg.RedisAddr)
	} else {
		rateLimitStore = middleware.NewInMemoryRateLimitStore()
		logger.Warn("REDIS_ADDR not set, using in-memory rate limit store")
	}

	// Ranking weights, optionally recalibrated from file
	weights := search.DefaultWeights()
	if cfg.RankingCalibrationPath != "" {
		loaded, err := search.LoadCalibration(cfg.RankingCalibrationPath)
		if err != nil {
			logger.Error("failed to load ranking calibration",
				"path", cfg.RankingCalibrationPath, "error", err)
			os.Exit(1)
		}
		weights = loaded
	}
	scorer, err := search.NewScorer(weights)
	if err != nil {
		logger.Error("invalid ranking weights", "error", err)
		os.Exit(1)
	}

	searchService := search.NewService(repo, scorer, searchMetrics, logger)

	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)

	// Handlers
	searchHandlers := api.NewSearchHandlers(searchService, logger)
	tripHandlers := api.NewTripHandlers(repo, logger)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:      dbChecker,
		RedisChecker:   redisChecker,
		MetricsEnabled: true,
	})

	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
	globalLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimitGlobalRequests,
		WindowDuration:    window,
	}
	searchLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimitSearchRequests,
		WindowDuration:    window,
	}
	searchRateLimiter := middleware.RateLimiter(rateLimitStore, searchLimit, middleware.UserKeyFunc(), httpMetrics)

	mux := http.NewServeMux()
	mux.Handle("/search/trips", searchRateLimiter(http.HandlerFunc(searchHandlers.SearchTrips)))
	mux.Handle("/search/compatibility", searchRateLimiter(http.HandlerFunc(searchHandlers.Compatibility)))
	mux.HandleFunc("/trips", tripHandlers.CreateTrip)
	mux.HandleFunc("/trips/", tripHandlers.GetTrip)
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Root endpoint doubles as the 404 handler for unknown paths
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"carryon-api","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Apply middleware, outermost last:
	// RequestID -> Tracing -> Logging -> CORS -> HTTPMetrics -> auth -> global rate limit -> profiling -> mux
	var handler http.Handler = mux
	handler = middleware.Profiling(middleware.ProfilingConfig{
		Enabled:     cfg.ProfilingEnabled,
		Environment: cfg.Env,
	})(handler)
	handler = middleware.RateLimiter(rateLimitStore, globalLimit, middleware.IPKeyFunc(), httpMetrics)(handler)
	handler = auth.Authenticate(jwtService)(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	if len(cfg.CORSAllowedOrigins) > 0 {
		handler = middleware.CORS(middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: true,
			MaxAge:           300,
		})(handler)
	}
	handler = middleware.Logging(logger)(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing(serviceName)(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down tracer provider", "error", err)
	}

	logger.Info("server stopped")
}
