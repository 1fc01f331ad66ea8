package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/noirlabs/noir/internal"
	"github.com/noirlabs/noir/internal/billing"
	"github.com/noirlabs/noir/internal/email"
	"github.com/noirlabs/noir/internal/events"
	"github.com/noirlabs/noir/internal/handler"
	"github.com/noirlabs/noir/internal/middleware"
	"github.com/noirlabs/noir/internal/postgres"
	"github.com/noirlabs/noir/internal/router"
	"github.com/noirlabs/noir/internal/routes"
	"github.com/noirlabs/noir/internal/service"
	"github.com/noirlabs/noir/internal/shipping"
	"github.com/noirlabs/noir/internal/telemetry"
	"github.com/noirlabs/noir/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// pgx connection pool for the application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	orderStore := postgres.NewOrderStore(pool)
	inventoryStore := postgres.NewInventoryStore(pool)

	// Billing
	billingProvider, err := billing.NewStripeProvider(billing.StripeConfig{
		APIKey:        cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Stripe provider: %w", err)
	}

	// Shipping providers. Flat rate ships with every deployment; carrier
	// integrations register here.
	standard, err := decimal.NewFromString(cfg.Shipping.StandardRate)
	if err != nil {
		return fmt.Errorf("invalid SHIPPING_FLAT_STANDARD: %w", err)
	}
	express, err := decimal.NewFromString(cfg.Shipping.ExpressRate)
	if err != nil {
		return fmt.Errorf("invalid SHIPPING_FLAT_EXPRESS: %w", err)
	}
	shippingProviders := []shipping.Provider{
		shipping.NewFlatRateProvider(cfg.Shipping.Currency, []shipping.FlatRate{
			{ServiceName: "Standard Shipping", ServiceCode: "standard", Cost: standard, DaysMin: 5, DaysMax: 7},
			{ServiceName: "Express Shipping", ServiceCode: "express", Cost: express, DaysMin: 2, DaysMax: 3},
		}),
	}
	if cfg.Shipping.EasyPostAPIKey != "" {
		easypostProvider, err := shipping.NewEasyPostProvider(shipping.EasyPostConfig{
			APIKey: cfg.Shipping.EasyPostAPIKey,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize EasyPost provider: %w", err)
		}
		shippingProviders = append(shippingProviders, easypostProvider)
	}

	// Events: JetStream when configured, no-op otherwise.
	var publisher events.Publisher = &events.NoopPublisher{}
	if cfg.NATS.Enabled {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("failed to connect event publisher: %w", err)
		}
		publisher = natsPublisher
	}
	defer publisher.Close()

	// Metrics
	businessMetrics := telemetry.NewBusinessMetrics("noir")
	httpMetrics := middleware.NewMetrics("noir")

	// Services
	orderService := service.NewOrderService(orderStore, cfg.TenantID, billingProvider, publisher, businessMetrics, logger)
	inventoryService := service.NewInventoryService(inventoryStore, cfg.TenantID, businessMetrics, logger)
	rateService := service.NewRateQuoteService(shippingProviders, cfg.TenantID, businessMetrics, logger)

	// Notification worker, consuming the published events.
	if cfg.NATS.Enabled {
		emailService := email.NewService(
			email.NewSMTPSender(email.SMTPConfig{
				Host:     cfg.Email.Host,
				Port:     int(cfg.Email.Port),
				Username: cfg.Email.Username,
				Password: cfg.Email.Password,
				From:     cfg.Email.From,
				FromName: cfg.Email.FromName,
			}),
			cfg.Email.From, cfg.Email.FromName, cfg.Email.FromName)

		notificationWorker, err := worker.NewWorker(cfg.NATS.URL, emailService, businessMetrics, logger)
		if err != nil {
			return fmt.Errorf("failed to start notification worker: %w", err)
		}
		go func() {
			if err := notificationWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notification worker stopped", "error", err)
			}
		}()
	}

	// Router
	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		httpMetrics.Middleware,
		middleware.MaxBodySize(),
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
	)

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		Orders:         handler.NewOrderHandler(orderService),
		Inventory:      handler.NewInventoryHandler(inventoryService),
		Rates:          handler.NewRateHandler(rateService),
		Webhooks:       handler.NewStripeWebhookHandler(billingProvider, orderService, businessMetrics, cfg.TenantID),
		Health:         handler.NewHealthHandler(pool),
		MetricsHandler: httpMetrics.Handler(),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", server.Addr, "tenant_id", cfg.TenantID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
