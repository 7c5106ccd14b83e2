// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"association-membership/internal/config"
	"association-membership/internal/domain/ports/adapter"
	"association-membership/internal/infra/alert"
	pg "association-membership/internal/infra/db/postgres"
	"association-membership/internal/infra/logging"
	"association-membership/internal/infra/mail"
	"association-membership/internal/infra/payment"
	red "association-membership/internal/infra/redis"
	"association-membership/internal/infra/sched"
	"association-membership/internal/infra/web"
	"association-membership/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop gateway)")
	flag.Parse()

	// .env is optional; real deployments configure through the YAML file.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	userRepo := pg.NewUserRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	cardRepo := pg.NewCardRepo(pool)
	catalogRepo := pg.NewCatalogRepo(pool)

	// ---- Adapters ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev && cfg.Payment.BaseURL == "" {
		gateway = payment.NewNoopGateway()
		logger.Warn().Msg("payment gateway: noop")
	} else {
		gateway = payment.NewGateway(&cfg.Payment, logger)
	}
	verifier := payment.NewWebhookVerifier(cfg.Payment.WebhookSecret)

	var alerts adapter.AlertNotifier
	if cfg.Alert.TelegramToken != "" {
		alerts, err = alert.NewTelegramNotifier(cfg.Alert.TelegramToken, cfg.Alert.TelegramChatID, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier failed")
		}
	} else {
		alerts = alert.NewLogNotifier(logger)
	}
	mailer := mail.NewLogMailer(logger)

	// ---- Use cases ----
	urls := usecase.ChargeURLs{
		Return:       cfg.Server.BaseURL + "/payment/done",
		Cancel:       cfg.Server.BaseURL + "/payment/cancelled",
		Notification: cfg.Server.BaseURL + "/api/v1/notifications",
	}
	chargeUC := usecase.NewChargeUseCase(userRepo, paymentRepo, cardRepo, catalogRepo, gateway, urls, cfg.Payment.Currency, logger)
	reconcileUC := usecase.NewReconcileUseCase(paymentRepo, cardRepo, userRepo, txManager, alerts, cfg.Payment.Currency, logger)
	sweepUC := usecase.NewSweepUseCase(userRepo, paymentRepo, cardRepo, chargeUC, cfg.Sweep.GraceDays, logger)
	memberUC := usecase.NewMemberUseCase(userRepo, paymentRepo, cardRepo, txManager, mailer, cfg.Server.BaseURL, cfg.Auth.BcryptCost, logger)

	// ---- HTTP server ----
	server := web.NewServer(cfg, web.ServerDeps{
		Members:    memberUC,
		Charges:    chargeUC,
		Reconciler: reconcileUC,
		Users:      userRepo,
		Catalog:    catalogRepo,
		Verifier:   verifier,
		Limiter:    rateLimiter,
	}, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Sweep worker ----
	worker := sched.NewSweepWorker(sweepUC, locker, cfg.Sweep.Interval, cfg.Sweep.LockTTL, logger)
	worker.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	worker.Stop()
}
