package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/recovery/internal/adapters/http/api"
	"github.com/okian/recovery/internal/adapters/http/site"
	"github.com/okian/recovery/internal/adapters/http/swagger"
	app "github.com/okian/recovery/internal/app"
	"github.com/okian/recovery/internal/config"
	"github.com/okian/recovery/internal/render/theme"
	"github.com/okian/recovery/pkg/logger"
	"github.com/okian/recovery/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Initialize logging with defaults until the config says otherwise.
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		os.Exit(1)
	}
}

// run serves cfg until ctx is cancelled or the listener fails.
func run(ctx context.Context, cfg *config.Config) error {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(ctx, cfg, loggerInstance)
	if err != nil {
		return err
	}
	defer svc.Stop()

	g, gctx := errgroup.WithContext(ctx)

	// Handlers get gctx so live sessions close with the server.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(gctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g.Go(func() error {
		startSystemMetricsUpdater(gctx, metrics.RefreshInterval())
		return nil
	})
	g.Go(func() error {
		loggerInstance.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %w", api.ErrServe, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		loggerInstance.Info(ctx, "shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
			return err
		}
		return nil
	})

	err = g.Wait()
	loggerInstance.Info(ctx, "server stopped")
	return err
}

// newService builds and starts the estimation service from cfg.
func newService(ctx context.Context, cfg *config.Config, l logger.Logger) (*app.Service, error) {
	th, err := theme.ByName(cfg.Theme)
	if err != nil {
		return nil, err
	}
	svc := app.New(
		app.WithLogger(l),
		app.WithParams(cfg.Params()),
		app.WithHorizon(cfg.DefaultHorizonHours, cfg.MaxHorizonHours),
		app.WithStepHours(cfg.SampleStepHours),
		app.WithTheme(th),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start service: %w", err)
	}
	return svc, nil
}

// newHandler registers every route on a fresh mux.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithLive(cfg.LiveEnabled),
	)
	apiServer.Register(ctx, mux)

	// The landing page owns "/" and must come last.
	site.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater samples runtime metrics every interval until ctx ends.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
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

// updateSystemMetrics updates system-level metrics.
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
