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

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/poverty-pockets/pockets-backend/internal/census"
	"github.com/poverty-pockets/pockets-backend/internal/config"
	"github.com/poverty-pockets/pockets-backend/internal/db"
	"github.com/poverty-pockets/pockets-backend/internal/logging"
	"github.com/poverty-pockets/pockets-backend/internal/metrics"
	"github.com/poverty-pockets/pockets-backend/internal/middleware"
	"github.com/poverty-pockets/pockets-backend/internal/pockets"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// initialLoadTimeout bounds the first load, which fetches every census table.
const initialLoadTimeout = 5 * time.Minute

const healthCheckTimeout = 15 * time.Second

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg := config.LoadFromEnv()
	logger, err := logging.Setup(cfg.LogLevel, cfg.Development)
	if err != nil {
		log.Fatal("Failed to set up logging: ", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		logger.Fatal("invalid sources", zap.Error(err))
	}

	// The database only backs the census response cache and load history.
	var gdb *gorm.DB
	if cfg.CacheEnabled() {
		gdb, err = db.Connect(cfg.DatabaseURL)
		if err == nil {
			err = pockets.Migrate(gdb)
		}
		if err != nil {
			logger.Warn("database unavailable, census cache disabled", zap.Error(err))
			gdb = nil
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client := census.NewClient(cfg.CensusKey, cfg.CensusBaseURL, cfg.CensusRate)
	opts := pockets.Options{
		Fetcher:      census.NewCachedFetcher(client, gdb, cfg.CacheMaxAge),
		Sources:      sources,
		TractGeoJSON: cfg.TractGeoJSON,
		ZipGeoJSON:   cfg.ZipGeoJSON,
		Metrics:      m,
		DB:           gdb,
	}
	if cfg.SpreadsheetPath != "" {
		opts.Adoption = pockets.CSVFile(cfg.SpreadsheetPath)
	}
	svc := pockets.NewService(pockets.NewLoader(opts), gdb)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
		if err := client.HealthCheck(checkCtx); err != nil {
			logger.Warn("census api health check failed", zap.Error(err))
			return
		}
		logger.Info("census api reachable")
	}()

	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, initialLoadTimeout)
		defer cancel()
		if _, err := svc.Reload(loadCtx); err != nil {
			logger.Error("initial load failed", zap.Error(err))
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Get("/", RootHandler)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/pockets", pockets.SetupRoutes(svc, cfg.AdminTokenHash))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("server listening", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
