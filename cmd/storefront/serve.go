package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront/internal/checkout"
	"github.com/nikolayk812/storefront/internal/config"
	"github.com/nikolayk812/storefront/internal/events"
	"github.com/nikolayk812/storefront/internal/httpapi"
	"github.com/nikolayk812/storefront/internal/migrations"
	"github.com/nikolayk812/storefront/internal/payment"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/repository"
	"github.com/nikolayk812/storefront/internal/shopapi"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

const sweepInterval = time.Minute

func newServeCmd(opts *rootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cart and checkout HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, migrate, logger)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before serving (postgres backend)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger) error {
	cur, err := cfg.CurrencyUnit()
	if err != nil {
		return err
	}

	if migrate && cfg.SnapshotBackend == config.SnapshotBackendPostgres {
		if err := migrations.Up(cfg.PostgresDSN); err != nil {
			return fmt.Errorf("migrations.Up: %w", err)
		}
	}

	snapshots, closeSnapshots, err := newSnapshotStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("newSnapshotStore: %w", err)
	}
	defer closeSnapshots()

	publisher, closeEvents, err := newEventPublisher(cfg, logger)
	if err != nil {
		return fmt.Errorf("newEventPublisher: %w", err)
	}
	defer closeEvents()

	api, err := shopapi.New(shopapi.Config{
		BaseURL:     cfg.ShopAPIURL,
		Timeout:     cfg.RequestTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("shopapi.New: %w", err)
	}

	sessions, err := httpapi.NewRegistry(httpapi.RegistryConfig{
		Currency:  cur,
		Snapshots: snapshots,
		API:       api,
		Checkout: checkout.Options{
			Provider:    cfg.PaymentProvider,
			CallTimeout: cfg.RequestTimeout,
			Events:      publisher,
		},
		IdleTimeout: cfg.SessionIdleTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("httpapi.NewRegistry: %w", err)
	}
	defer sessions.Close()

	go sessions.Run(ctx, sweepInterval)

	router, err := httpapi.NewRouter(httpapi.Config{
		Sessions:       sessions,
		API:            api,
		Widget:         newWidget(cfg, logger),
		RequestTimeout: cfg.RequestTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("httpapi.NewRouter: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Storefront starting",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("snapshot_backend", cfg.SnapshotBackend),
			zap.String("payment_provider", cfg.PaymentProvider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("srv.ListenAndServe: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("srv.Shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}

func newSnapshotStore(ctx context.Context, cfg *config.Config) (port.SnapshotStore, func(), error) {
	switch cfg.SnapshotBackend {
	case config.SnapshotBackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("pgxpool.New: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pool.Ping: %w", err)
		}
		return repository.NewCartSnapshot(pool), pool.Close, nil

	case config.SnapshotBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("client.Ping: %w", err)
		}
		return repository.NewRedisSnapshot(client, cfg.SnapshotTTL), func() { _ = client.Close() }, nil

	case config.SnapshotBackendMemory:
		return repository.NewMemorySnapshot(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("snapshot_backend[%s] is not supported", cfg.SnapshotBackend)
}

func newEventPublisher(cfg *config.Config, logger *zap.Logger) (port.EventPublisher, func(), error) {
	if cfg.NATSURL == "" {
		logger.Info("NATS URL not set, checkout events are discarded")
		return events.Noop(), func() {}, nil
	}

	nc, err := events.Connect(cfg.NATSURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("events.Connect: %w", err)
	}

	closeFn := func() {
		if err := nc.Drain(); err != nil {
			logger.Warn("Failed to drain NATS connection", zap.Error(err))
		}
	}

	return events.NewPublisher(nc, cfg.EventSubjectPrefix, logger), closeFn, nil
}

// newWidget returns the server-side payment widget, nil when payments complete in the browser.
func newWidget(cfg *config.Config, logger *zap.Logger) port.PaymentWidget {
	if cfg.PaymentProvider != "stripe" {
		return nil
	}
	return payment.NewStripeWidget(cfg.StripeSecretKey, nil, cfg.StripeReturnURL, logger)
}
