// Command refund-worker expires lapsed subscriptions and settles every
// pending refund once, then exits. Notifications are queued for the API
// process to deliver.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/booking"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/config"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/db"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/email"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/logger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/refund"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/subscription"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/user"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/wallet"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger.Init()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		logger.Error("failed to configure logger", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.DatabaseURL, db.PoolOptions{
		MaxOpenConns:    cfg.Refund.Concurrency + 1,
		MaxIdleConns:    cfg.Refund.Concurrency,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return 1
	}
	defer database.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	ledgerRepo := ledger.NewRepository(database)
	txRunner := db.NewRunner(database)
	subscriptionService := subscription.NewService(subscription.NewRepository(database))

	expired, err := subscriptionService.ExpireDue(ctx)
	if err != nil {
		logger.Error("expire subscriptions failed", "error", err)
		return 1
	}

	svc := refund.NewService(refund.Deps{
		Bookings:      booking.NewService(booking.NewRepository(database), txRunner),
		Subscriptions: subscriptionService,
		Wallets:       wallet.NewRepository(database, ledgerRepo),
		Ledger:        ledgerRepo,
		Tx:            txRunner,
		Lock:          refund.NewBatchLock(rdb, cfg.Refund.LockTTL),
		Notifier: email.New(rdb, user.NewRepository(database), email.SMTPConfig{
			From:     cfg.EmailFrom,
			FromName: cfg.EmailFromName,
		}),
	}, cfg.Refund)

	res, err := svc.ProcessAll(ctx)
	if err != nil {
		logger.Error("refund batch failed", "error", err)
		return 1
	}

	logger.Info("refund worker finished",
		"batch_id", res.BatchID,
		"expired_subscriptions", expired,
		"processed", res.Processed,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"settled_without_credit", res.SettledWithoutCredit,
		"total_amount", res.TotalAmount.String(),
	)
	if res.Failed > 0 {
		return 2
	}
	return 0
}
