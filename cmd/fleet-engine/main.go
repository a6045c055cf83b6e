package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/connectedopslab/fleet-engine/internal/api"
	"github.com/connectedopslab/fleet-engine/internal/config"
	"github.com/connectedopslab/fleet-engine/internal/engine"
	"github.com/connectedopslab/fleet-engine/internal/metrics"
	"github.com/connectedopslab/fleet-engine/internal/services"
	"github.com/connectedopslab/fleet-engine/internal/store"
	"github.com/connectedopslab/fleet-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)
	logger.Info("starting fleet-engine",
		slog.String("address", cfg.Server.Address),
		slog.Int("buffer_capacity", cfg.Buffer.Capacity),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	costModel, err := engine.NewCostModel(cfg.Costs.Path, logger)
	if err != nil {
		logger.Error("failed to load cost pack", slog.Any("error", err))
		os.Exit(1)
	}

	buffer := store.NewBuffer(cfg.Buffer.Capacity)
	scenario := store.NewScenario()
	counters := store.NewCounters()

	pipeline := engine.NewPipeline(
		logger,
		engine.NewValidator(cfg.Ranges),
		engine.NewScorer(cfg.Risk),
		engine.NewPatternDetector(cfg.Patterns),
	)
	aggregator := engine.NewFleetAggregator(engine.NewScorer(cfg.Risk), cfg.Fleet.WindowSeconds)

	service := services.NewTelemetryService(
		logger,
		utils.SystemClock{},
		buffer,
		scenario,
		counters,
		pipeline,
		aggregator,
		costModel,
		cfg.Buffer.DefaultReadLimit,
	)

	server, err := api.NewServer(cfg.Server, logger, service)
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("fleet-engine stopped")
}
