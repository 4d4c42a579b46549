package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/coach/internal/adapters/http/api"
	"github.com/okian/coach/internal/adapters/http/site"
	"github.com/okian/coach/internal/adapters/http/swagger"
	"github.com/okian/coach/internal/adapters/llm"
	"github.com/okian/coach/internal/adapters/mcptools"
	"github.com/okian/coach/internal/adapters/repository"
	app "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/config"
	"github.com/okian/coach/internal/domain/coach"
	"github.com/okian/coach/pkg/logger"
	"github.com/okian/coach/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second

	// writeTimeout must outlast a full provider fallback chain.
	writeTimeout = 3 * time.Minute

	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Runtime metrics are collected on the private registry instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// A missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "coach exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := repository.Open(ctx,
		repository.WithDriver(cfg.StoreDriver),
		repository.WithDSN(cfg.StoreDSN),
		repository.WithSQLitePath(cfg.SQLitePath),
	)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	opts := append(app.Options(cfg), app.WithLogger(log), app.WithStore(store))
	mgr, err := buildLLM(cfg, log)
	if err != nil {
		_ = store.Close()
		return err
	}
	if mgr != nil {
		opts = append(opts, app.WithLLM(mgr, coach.WithSampling(cfg.LLMTemperature, cfg.LLMMaxTokens)))
		log.Info(ctx, "llm providers configured", logger.Any("providers", mgr.Providers()))
	} else {
		log.Warn(ctx, "no llm provider configured; scenario and decision routes are disabled")
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(sctx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// buildLLM returns nil when no provider has credentials.
func buildLLM(cfg *config.Config, log logger.Logger) (*llm.Manager, error) {
	providers, err := llm.Build(app.ProviderConfigs(cfg),
		llm.WithTimeout(time.Duration(cfg.LLMTimeoutSeconds)*time.Second))
	if err != nil {
		return nil, fmt.Errorf("build llm providers: %w", err)
	}
	if len(providers) == 0 {
		return nil, nil
	}
	return llm.NewManager(providers,
		llm.WithPriority(cfg.Providers()...),
		llm.WithLogger(log.Named("llm")),
	), nil
}

func newRouter(cfg *config.Config, svc *app.Service, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	api.NewServer(svc).Register(r)
	swagger.Register(r)
	site.Register(r)
	if cfg.MCPEnabled {
		tools := mcptools.New(svc, mcptools.WithLogger(log.Named("mcp")))
		r.Handle(cfg.MCPPath, api.MetricsMiddleware(tools.Handler().ServeHTTP, "mcp"))
	}
	return r
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.CollectRuntime()
		}
	}
}

// startServiceMetricsUpdater refreshes queue and profile gauges until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the gauges as a side effect.
			_ = svc.GetStats()
		}
	}
}
