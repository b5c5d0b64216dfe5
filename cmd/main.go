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

	"github.com/okian/claimsorted/internal/adapters/http/api"
	"github.com/okian/claimsorted/internal/adapters/http/swagger"
	"github.com/okian/claimsorted/internal/adapters/repository"
	service "github.com/okian/claimsorted/internal/app"
	"github.com/okian/claimsorted/internal/config"
	"github.com/okian/claimsorted/internal/domain/calculator"
	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/okian/claimsorted/pkg/logger"
	"github.com/okian/claimsorted/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "service terminated", logger.Error(err))
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}

// run wires storage, service and HTTP routes, then serves until ctx is done.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	m, registry := newMetrics(cfg)

	svc, err := newService(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx, m)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, log, m, registry),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return err
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newMetrics builds the metrics manager on its own registry from configuration.
func newMetrics(cfg *config.Config) (*metrics.Manager, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	m := metrics.NewManager(
		metrics.WithPrometheusRegistry(registry),
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsLatencyBuckets),
		metrics.WithPayoutBuckets(cfg.MetricsPayoutBuckets),
		metrics.WithCustomLabels(cfg.MetricsLabels),
	)
	return m, registry
}

// newService opens the configured store and starts the payout service on it.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger, m *metrics.Manager) (*service.Service, error) {
	limits, err := innerLimits(cfg)
	if err != nil {
		return nil, err
	}

	db, err := repository.Open(ctx, connectionConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store, err := repository.NewSQLStore(db, cfg.DBDriver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	svc := service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithCalculator(calculator.New(calculator.WithInnerLimits(limits))),
		service.WithMetrics(m),
		service.WithStoreTimeout(cfg.StoreTimeout()),
		service.WithListLimit(cfg.ListLimit),
		service.WithMigrate(cfg.DBMigrate),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to start service: %w", err)
	}
	return svc, nil
}

// newHandler registers the API and documentation routes.
func newHandler(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger,
	m *metrics.Manager, registry prometheus.Gatherer,
) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithLogger(log),
		api.WithMetrics(m, registry),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
	).Register(ctx, mux)
	return mux
}

// connectionConfig maps process configuration to repository settings.
func connectionConfig(cfg *config.Config) repository.ConnectionConfig {
	cc := repository.ConnectionConfig{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
	}
	if cfg.DBAccessToken != "" {
		cc.Tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.DBAccessToken})
	}
	return cc
}

// innerLimits converts configured limits to the calculator's table.
// A nil result keeps the calculator defaults.
func innerLimits(cfg *config.Config) (map[claim.Category]decimal.Decimal, error) {
	table, err := cfg.InnerLimitTable()
	if err != nil || len(table) == 0 {
		return nil, err
	}
	out := make(map[claim.Category]decimal.Decimal, len(table))
	for category, limit := range table {
		out[claim.Category(category)] = limit
	}
	return out, nil
}

// startSystemMetricsUpdater samples process gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, m *metrics.Manager) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.UpdateSystemMetrics()
		}
	}
}
