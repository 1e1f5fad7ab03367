package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/expensio/ml-gateway/config"
	"github.com/expensio/ml-gateway/internal/circuitbreaker"
	"github.com/expensio/ml-gateway/internal/corrections"
	"github.com/expensio/ml-gateway/internal/handler"
	"github.com/expensio/ml-gateway/internal/healthcheck"
	"github.com/expensio/ml-gateway/internal/httpserver"
	"github.com/expensio/ml-gateway/internal/metrics"
	"github.com/expensio/ml-gateway/internal/mlclient"
	"github.com/expensio/ml-gateway/internal/reportclient"
	"github.com/expensio/ml-gateway/internal/retrain"
	"github.com/expensio/ml-gateway/pkg/logger"
)

const metricsBufferSize = 256

func main() {
	// .env is optional; deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := corrections.NewStore(cfg.Corrections.DBPath)
	if err != nil {
		log.Error("Failed to open corrections store", slog.Any("err", err))
		os.Exit(1)
	}
	defer store.Close()

	notifier, closeNotifier := initializeNotifier(cfg, log)
	defer closeNotifier()

	registry := circuitbreaker.NewRegistry(cfg.MLService.FailureThreshold, cfg.MLService.RecoveryWindow())

	predictor := mlclient.New(mlclient.Options{
		BaseURL:         cfg.MLService.BaseURL,
		Timeout:         cfg.MLService.RequestTimeout(),
		Enabled:         cfg.MLService.Enabled,
		FallbackEnabled: cfg.MLService.FallbackEnabled,
	}, registry.GetBreaker(handler.DepMLService), log)

	reports := reportclient.New(reportclient.Options{
		BaseURL: cfg.ReportService.BaseURL,
		Timeout: cfg.ReportService.RequestTimeout(),
		Enabled: cfg.ReportService.Enabled,
	}, log)

	collector := metrics.NewCollector(metricsBufferSize, log)
	collector.Start(ctx)

	deps, watchers := initializeWatchers(cfg, predictor, reports, collector, log)

	gateway := handler.New(handler.Deps{
		Logger:      log,
		Predictor:   predictor,
		Corrections: store,
		Notifier:    notifier,
		Breakers:    registry,
		Health:      deps,
		Collector:   collector,
		RetrainMin:  cfg.Corrections.RetrainMin,
	})

	mux := setupRouter(gateway, collector)

	srv, err := httpserver.New(cfg.Server.Address, gateway.LogRequests(mux))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	for _, watcher := range watchers {
		group.Go(func() error {
			watcher.Run(groupCtx)
			return nil
		})
	}

	group.Go(func() error {
		log.Info("Gateway listening", slog.String("address", cfg.Server.Address))
		return srv.Start()
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("Shutting down gracefully...")
		return srv.Shutdown(context.Background())
	})

	if err := group.Wait(); err != nil {
		log.Error("Gateway exited with error", slog.Any("err", err))
		os.Exit(1)
	}
}

// initializeNotifier builds the retrain trigger pipeline. A missing AMQP URL
// or an unreachable broker degrades to a notifier that only logs.
func initializeNotifier(cfg *config.Config, log *slog.Logger) (*retrain.Notifier, func()) {
	if cfg.AMQP.URL == "" {
		log.Info("AMQP not configured, retrain triggers disabled")
		return retrain.NewNotifier(nil, cfg.Corrections.RetrainEvery, log), func() {}
	}

	client, err := retrain.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue)
	if err != nil {
		log.Warn("Failed to connect to AMQP, retrain triggers disabled", slog.Any("err", err))
		return retrain.NewNotifier(nil, cfg.Corrections.RetrainEvery, log), func() {}
	}

	log.Info("Retrain trigger publisher connected",
		slog.String("exchange", cfg.AMQP.Exchange),
		slog.String("queue", cfg.AMQP.Queue))

	return retrain.NewNotifier(client, cfg.Corrections.RetrainEvery, log), func() {
		if err := client.Close(); err != nil {
			log.Warn("Failed to close AMQP client", slog.Any("err", err))
		}
	}
}

// initializeWatchers builds one health dependency per enabled upstream and a
// watcher probing it, reporting transitions to the metrics collector.
func initializeWatchers(cfg *config.Config, predictor *mlclient.Client, reports *reportclient.Client, collector *metrics.Collector, log *slog.Logger) ([]*healthcheck.Dependency, []*healthcheck.Watcher) {
	interval := cfg.HealthCheck.Period()

	var deps []*healthcheck.Dependency
	var watchers []*healthcheck.Watcher

	add := func(name string, probe healthcheck.Prober) {
		dep := healthcheck.NewDependency(name)
		watcher := healthcheck.NewWatcher(dep, probe, interval, log)
		watcher.OnChange(func(name string, healthy bool) {
			collector.Emit(metrics.Event{
				Type:       metrics.EventHealthChanged,
				Dependency: name,
				Healthy:    healthy,
			})
		})
		deps = append(deps, dep)
		watchers = append(watchers, watcher)
	}

	if predictor.Enabled() {
		add(handler.DepMLService, func(ctx context.Context) bool {
			status, err := predictor.HealthCheck(ctx)
			return err == nil && status.Available
		})
	}

	if reports.Enabled() {
		add(handler.DepReportService, reports.Health)
	}

	return deps, watchers
}
