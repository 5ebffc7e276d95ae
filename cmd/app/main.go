package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/adjustment"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/booking"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/config"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/db"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/email"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/logger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/refund"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/server"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/subscription"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/user"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/wallet"
)

// @title OfficeXpress Wallet API
// @version 1.0
// @description Rider wallets, refunds and admin adjustments.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		logger.Fatalf("Failed to configure logger: %v", err)
	}
	logger.Info("Starting OfficeXpress wallet service", "env", cfg.Env)

	database, err := db.Connect(cfg.DatabaseURL, db.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	ledgerRepo := ledger.NewRepository(database)
	walletRepo := wallet.NewRepository(database, ledgerRepo)
	userRepo := user.NewRepository(database)
	txRunner := db.NewRunner(database)

	emailService := email.New(rdb, userRepo, email.SMTPConfig{
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go emailService.Start(ctx)

	subscriptionService := subscription.NewService(subscription.NewRepository(database))
	bookingService := booking.NewService(booking.NewRepository(database), txRunner)
	refundService := refund.NewService(refund.Deps{
		Bookings:      bookingService,
		Subscriptions: subscriptionService,
		Wallets:       walletRepo,
		Ledger:        ledgerRepo,
		Tx:            txRunner,
		Lock:          refund.NewBatchLock(rdb, cfg.Refund.LockTTL),
		Notifier:      emailService,
	}, cfg.Refund)
	adjustmentService := adjustment.NewService(walletRepo, emailService)

	srv := server.New(cfg, database, emailService, server.Handlers{
		Wallet:       wallet.NewHandler(walletRepo),
		Adjustment:   adjustment.NewHandler(adjustmentService),
		Refund:       refund.NewHandler(refundService),
		Subscription: subscription.NewHandler(subscriptionService),
		Booking:      booking.NewHandler(bookingService),
	})

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
