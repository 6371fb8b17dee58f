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

	"github.com/okian/rslist/internal/adapters/http/api"
	"github.com/okian/rslist/internal/adapters/http/swagger"
	"github.com/okian/rslist/internal/adapters/repository"
	app "github.com/okian/rslist/internal/app"
	"github.com/okian/rslist/internal/config"
	"github.com/okian/rslist/pkg/logger"
	"github.com/okian/rslist/pkg/metrics"
)

const (
	idleTimeout         = 60 * time.Second
	readHeaderTimeout   = 5 * time.Second
	shutdownTimeout     = 30 * time.Second
	metricsInterval     = 10 * time.Second
	storeGaugesInterval = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := applyLogging(cfg); err != nil {
		logger.Get().Warn(ctx, "invalid logging config; using defaults", logger.Error(err))
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "rslist exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// applyLogging switches format first since it rebuilds the handler.
func applyLogging(cfg *config.Config) error {
	var errs []error
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		errs = append(errs, err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		errs = append(errs, err)
		_ = logger.SetLevelString("info")
	}
	return errors.Join(errs...)
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithStore(store),
		app.WithDefaultVoteBudget(cfg.DefaultVoteBudget),
		app.WithSlotResolution(cfg.SlotResolution),
		app.WithBuyMaxRetries(cfg.BuyMaxRetries),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, log),
		ReadTimeout:       cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		updateMetrics(gctx, svc, log)
		return nil
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		store, err := repository.OpenPostgres(ctx, cfg.DatabaseDSN, repository.WithLogger(log.Named("gorm")))
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

func newMux(ctx context.Context, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, api.WithLogger(log.Named("http"))).Register(ctx, mux)
	return mux
}

// updateMetrics refreshes runtime and store gauges until ctx is done.
func updateMetrics(ctx context.Context, svc *app.Service, log logger.Logger) {
	system := time.NewTicker(metricsInterval)
	defer system.Stop()
	gauges := time.NewTicker(storeGaugesInterval)
	defer gauges.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-system.C:
			updateSystemMetrics()
		case <-gauges.C:
			if err := svc.RefreshGauges(ctx); err != nil && ctx.Err() == nil {
				log.Warn(ctx, "refreshing store gauges", logger.Error(err))
			}
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
