// File: cmd/sweep/main.go
//
// One-shot sweep runner for cron. Exits non-zero when the pass fails so the
// scheduler can alert; a pass skipped because another instance holds the lock
// exits zero.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"association-membership/internal/config"
	"association-membership/internal/domain"
	"association-membership/internal/domain/ports/adapter"
	"association-membership/internal/infra/alert"
	pg "association-membership/internal/infra/db/postgres"
	"association-membership/internal/infra/logging"
	"association-membership/internal/infra/payment"
	red "association-membership/internal/infra/redis"
	"association-membership/internal/infra/sched"
	"association-membership/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "sweep",
		Usage: "run one membership maintenance pass (card expiry, renewals, lapse)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to YAML config file"},
			&cli.BoolFlag{Name: "no-lock", Usage: "skip the distributed lock (single-instance deployments)"},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Minute, Usage: "overall pass deadline"},
		},
		Action: runSweep,
		Commands: []*cli.Command{
			{
				Name:      "reconcile",
				Usage:     "poll the gateway for one charge and apply the result",
				ArgsUsage: "<gateway charge id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to YAML config file"},
				},
				Action: runReconcile,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// runReconcile is the manual reconciliation path: instead of waiting for a
// notification it retrieves the charge from the gateway and feeds the result
// through the same state machine. Useful when a webhook delivery was lost.
func runReconcile(c *cli.Context) error {
	reference := c.Args().First()
	if reference == "" {
		return fmt.Errorf("a gateway charge id is required")
	}
	cfg, err := config.LoadConfig(c.String("config"), false)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(c.Context, time.Minute)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	userRepo := pg.NewUserRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	cardRepo := pg.NewCardRepo(pool)
	txManager := pg.NewTxManager(pool)

	var alerts adapter.AlertNotifier = alert.NewLogNotifier(logger)
	if cfg.Alert.TelegramToken != "" {
		if notifier, nerr := alert.NewTelegramNotifier(cfg.Alert.TelegramToken, cfg.Alert.TelegramChatID, logger); nerr == nil {
			alerts = notifier
		}
	}

	gateway := payment.NewGateway(&cfg.Payment, logger)
	result, err := gateway.RetrieveCharge(ctx, reference)
	if err != nil {
		return fmt.Errorf("retrieve charge: %w", err)
	}

	reconciler := usecase.NewReconcileUseCase(paymentRepo, cardRepo, userRepo, txManager, alerts, cfg.Payment.Currency, logger)
	if err := reconciler.Apply(ctx, result); err != nil {
		return fmt.Errorf("reconcile %s: %w", reference, err)
	}
	fmt.Printf("charge %s reconciled\n", reference)
	return nil
}

func runSweep(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"), false)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	userRepo := pg.NewUserRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	cardRepo := pg.NewCardRepo(pool)
	catalogRepo := pg.NewCatalogRepo(pool)

	gateway := payment.NewGateway(&cfg.Payment, logger)
	urls := usecase.ChargeURLs{
		Notification: cfg.Server.BaseURL + "/api/v1/notifications",
	}
	chargeUC := usecase.NewChargeUseCase(userRepo, paymentRepo, cardRepo, catalogRepo, gateway, urls, cfg.Payment.Currency, logger)
	sweepUC := usecase.NewSweepUseCase(userRepo, paymentRepo, cardRepo, chargeUC, cfg.Sweep.GraceDays, logger)

	var locker red.Locker
	if !c.Bool("no-lock") {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
	}

	report, err := sched.RunLocked(ctx, sweepUC, locker, cfg.Sweep.LockTTL)
	if errors.Is(err, domain.ErrSweepLocked) {
		logger.Info().Msg("sweep already running elsewhere, nothing to do")
		return nil
	}
	if err != nil {
		if cfg.Alert.TelegramToken != "" {
			if notifier, nerr := alert.NewTelegramNotifier(cfg.Alert.TelegramToken, cfg.Alert.TelegramChatID, logger); nerr == nil {
				_ = notifier.Notify(ctx, fmt.Sprintf("membership sweep failed: %v", err))
			}
		}
		return fmt.Errorf("sweep: %w", err)
	}

	fmt.Printf("sweep done: cards_expired=%d renewals_attempted=%d lapsed=%d\n",
		report.CardsExpired, report.RenewalsAttempted, report.Lapsed)
	return nil
}
