// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/invensight/stockpulse/internal/api"
	"github.com/invensight/stockpulse/internal/cache"
	"github.com/invensight/stockpulse/internal/config"
	"github.com/invensight/stockpulse/internal/engine"
	"github.com/invensight/stockpulse/internal/metrics"
	"github.com/invensight/stockpulse/internal/repository/postgres"
	"github.com/invensight/stockpulse/internal/scheduler"
	"github.com/invensight/stockpulse/internal/service"
	"github.com/invensight/stockpulse/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Initialize stores
	inventoryRepo := postgres.NewInventoryRepository(db)
	demandRepo := postgres.NewDemandRepository(db)
	alertRepo := postgres.NewAlertRepository(db)

	summaryCache, err := cache.NewSummaryCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Summary cache unavailable, continuing without it")
		summaryCache = cache.NewNoopSummaryCache()
	}

	engineMetrics := metrics.New(prometheus.DefaultRegisterer)

	eng := engine.New(engine.Config{
		TrendWindow:         cfg.Engine.TrendWindow,
		DefaultLeadTimeDays: cfg.Engine.DefaultLeadTimeDays,
		ExpiryWarningDays:   cfg.Engine.ExpiryWarningDays,
		SpreadMin:           cfg.Engine.SpreadMin,
		SpreadMax:           cfg.Engine.SpreadMax,
		WorkerCount:         cfg.Engine.WorkerCount,
	})

	evaluationService := service.NewEvaluationService(
		inventoryRepo, demandRepo, alertRepo,
		eng, summaryCache, engineMetrics,
		cfg.Engine.RetentionWindow,
	)

	// Background evaluation loop
	schedCtx, stopScheduler := context.WithCancel(context.Background())
	sched := scheduler.New(evaluationService, time.Duration(cfg.Engine.EvalIntervalSeconds)*time.Second)
	go sched.Run(schedCtx)

	// API server
	router := api.NewRouter(evaluationService, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start API server")
		}
	}()

	// Ops server: health and metrics on a separate listener
	opsSrv := newOpsServer(cfg.Server.OpsPort)
	go func() {
		logger.Log.Info().Str("port", cfg.Server.OpsPort).Msg("Starting ops server")
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start ops server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down...")

	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("API server forced to shutdown")
	}
	if err := opsSrv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Ops server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

func newOpsServer(port string) *http.Server {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
}
