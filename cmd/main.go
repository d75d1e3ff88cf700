package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/egrainsight/internal/adapters/http/api"
	"github.com/okian/egrainsight/internal/adapters/http/site"
	"github.com/okian/egrainsight/internal/adapters/http/swagger"
	app "github.com/okian/egrainsight/internal/app"
	"github.com/okian/egrainsight/internal/config"
	"github.com/okian/egrainsight/internal/domain/narrative"
	"github.com/okian/egrainsight/internal/domain/threshold"
	"github.com/okian/egrainsight/pkg/logger"
	"github.com/okian/egrainsight/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithWriter(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := build(cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build service", logger.Error(err))
		os.Exit(1)
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("table_version", svc.TableVersion()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// build loads the reference data named by cfg and assembles the service.
func build(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	table := threshold.Default()
	if cfg.ThresholdsFile != "" {
		t, err := threshold.LoadFile(cfg.ThresholdsFile)
		if err != nil {
			return nil, fmt.Errorf("thresholds: %w", err)
		}
		table = t
	}

	catalog := narrative.DefaultCatalog()
	if cfg.TemplatesFile != "" {
		c, err := narrative.LoadCatalogFile(cfg.TemplatesFile)
		if err != nil {
			return nil, fmt.Errorf("templates: %w", err)
		}
		catalog = c
	}
	metrics.SetReferenceData(table.Version(), table.Len(), len(catalog.Languages()))

	chain := narrative.NewChain(
		narrative.NewTemplateProvider(catalog),
		narrative.WithProviderTimeout(cfg.ProviderTimeout()),
		narrative.WithChainLogger(log.Named("narrative")),
	)

	return app.New(
		app.WithTable(table),
		app.WithNarrator(chain),
		app.WithDefaultLanguage(cfg.DefaultLanguage),
		app.WithOutlierDistance(cfg.OutlierBandDistance),
		app.WithMaxBatchSize(cfg.MaxBatchSize),
		app.WithLogger(log.Named("service")),
	), nil
}

// newHandler registers every route and applies CORS.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)
	return api.CORS(mux, cfg.CORSAllowedOrigins)
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
