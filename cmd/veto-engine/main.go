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

	"github.com/dqstack/veto-engine/internal/api"
	"github.com/dqstack/veto-engine/internal/config"
	"github.com/dqstack/veto-engine/internal/engine"
	"github.com/dqstack/veto-engine/internal/metrics"
	"github.com/dqstack/veto-engine/internal/services"
	"github.com/dqstack/veto-engine/internal/sources"
	"github.com/dqstack/veto-engine/internal/store"
	"github.com/dqstack/veto-engine/internal/utils"
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

	logger := utils.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting veto-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	archive, err := store.NewBadgerStore(store.BadgerOptions{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: cfg.Store.SyncWrites,
		GCInterval: cfg.Store.GCInterval,
	}, logger)
	if err != nil {
		logger.Error("failed to open run archive", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := archive.Close(); err != nil {
			logger.Warn("archive close", slog.Any("error", err))
		}
	}()

	var remote *sources.RemoteClient
	if cfg.Inputs.Remote.BaseURL != "" {
		remote = sources.NewRemoteClient(cfg.Inputs.Remote.BaseURL, cfg.Inputs.Remote.Timeout, logger)
	}
	loader := sources.NewLoader(logger, cfg.Inputs.DefinerPath, cfg.Inputs.SegmentGlobs, remote, cfg.Inputs.Remote.Instruments)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	vetoEngine := engine.NewEngine(logger, engine.NewBuilder(logger), cfg.Compute.Workers)
	vetoService := services.NewVetoService(logger, vetoEngine, archive, cfg.Compute.Categories)

	corpus, err := loader.Load(ctx)
	if err != nil {
		logger.Error("initial corpus load failed", slog.Any("error", err))
		os.Exit(1)
	}
	vetoService.Swap(corpus)

	if cfg.Inputs.Watch {
		reload := func() {
			fresh, err := loader.Load(ctx)
			if err != nil {
				metrics.ObserveReload(metrics.OutcomeError)
				logger.Error("corpus reload failed", slog.Any("error", err))
				return
			}
			vetoService.Swap(fresh)
			metrics.ObserveReload(metrics.OutcomeSuccess)
			logger.Info("corpus reloaded", slog.Int("instruments", len(fresh.Instruments())))
		}
		watcher, err := sources.NewWatcher(logger, loader.WatchTargets(), 0, reload)
		if err != nil {
			logger.Error("failed to start input watcher", slog.Any("error", err))
			os.Exit(1)
		}
		defer watcher.Close()
		go watcher.Run(ctx)
	}

	server, err := api.NewServer(cfg.Server, logger, vetoService)
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

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
		if serveErr := server.Start(); serveErr != nil {
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
	logger.Info("veto-engine stopped")
}
