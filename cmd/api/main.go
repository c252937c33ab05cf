package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fabro-storefront/internal/catalog"
	"fabro-storefront/internal/client"
	"fabro-storefront/internal/config"
	"fabro-storefront/internal/logger"
	"fabro-storefront/internal/repository"
	"fabro-storefront/internal/server"
	"fabro-storefront/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("environment", cfg.Environment.Name))

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := client.OpenDatabase(&cfg.Database)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	defer sqlDB.Close()

	razorpayClient := client.NewRazorpayClient(&cfg.Razorpay)
	var stripeClient client.StripeClient
	if cfg.Stripe.SecretKey != "" {
		if stripeClient, err = client.NewStripeClient(&cfg.Stripe); err != nil {
			return err
		}
	}
	emailSender := client.NewResendClient(&cfg.Resend)

	publisher, err := client.NewEventPublisher(&cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer publisher.Close()

	cat, err := catalog.New()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	orderRepo := repository.NewOrderRepository(db)
	historyRepo := repository.NewStatusHistoryRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	adminUserRepo := repository.NewAdminUserRepository(db)

	events := service.NewEventEmitter(publisher, log)
	notificationService := service.NewNotificationService(emailSender, orderRepo, cfg.WhatsApp.BusinessNumber, cfg.Store.BaseURL, log)
	orderService := service.NewOrderService(
		db,
		service.NewCustomerService(customerRepo),
		orderRepo,
		historyRepo,
		service.NewOrderNumberGenerator(cfg.Store.OrderNumberPrefix, nil),
		notificationService,
		events,
		log,
	)
	lifecycleService := service.NewLifecycleService(db, orderRepo, historyRepo, cfg.Store.OrderNumberPrefix, events, log)
	paymentService := service.NewPaymentService(
		db,
		razorpayClient,
		stripeClient,
		service.PaymentSecrets{
			RazorpayKeySecret:     cfg.Razorpay.KeySecret,
			RazorpayWebhookSecret: cfg.Razorpay.WebhookSecret,
			Currency:              cfg.Store.Currency,
		},
		orderRepo,
		webhookEventRepo,
		notificationService,
		events,
		log,
	)
	adminService := service.NewAdminService(adminUserRepo, cfg.Admin.JWTSecret, cfg.Admin.TokenTTL, log)

	if cfg.Admin.Email != "" {
		if err := adminService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
	}

	srv := server.NewServer(server.Services{
		Catalog:       cat,
		Cart:          service.NewCartService(cat),
		Orders:        orderService,
		Lifecycle:     lifecycleService,
		Payments:      paymentService,
		Notifications: notificationService,
		Admin:         adminService,
		Ping:          sqlDB.PingContext,
	}, cfg, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting HTTP server", zap.String("addr", cfg.HTTP.Address()))
		return srv.Start(cfg.HTTP.Address())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// confirmations queued by the last requests still go out
		return notificationService.Wait(shutdownCtx)
	})

	return g.Wait()
}
