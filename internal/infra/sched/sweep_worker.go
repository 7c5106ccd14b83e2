// File: internal/infra/sched/sweep_worker.go
package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"association-membership/internal/domain"
	"association-membership/internal/infra/metrics"
	"association-membership/internal/infra/redis"
	"association-membership/internal/usecase"
)

const lockKey = "sweep:lock"

// SweepWorker runs the maintenance sweep on a fixed cadence. A distributed
// lock keeps concurrent instances (other app replicas, the CLI) from running
// a pass at the same time; losing the lock race counts as a skipped run, not
// an error.
type SweepWorker struct {
	sweep    usecase.SweepUseCase
	locker   redis.Locker
	interval time.Duration
	lockTTL  time.Duration
	logger   zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewSweepWorker(
	sweep usecase.SweepUseCase,
	locker redis.Locker,
	interval, lockTTL time.Duration,
	logger *zerolog.Logger,
) *SweepWorker {
	return &SweepWorker{
		sweep:    sweep,
		locker:   locker,
		interval: interval,
		lockTTL:  lockTTL,
		logger:   logger.With().Str("component", "sweep-worker").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *SweepWorker) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *SweepWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

func (w *SweepWorker) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// One pass at startup so a restarted instance catches up immediately.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *SweepWorker) runOnce(ctx context.Context) {
	report, err := RunLocked(ctx, w.sweep, w.locker, w.lockTTL)
	switch {
	case errors.Is(err, domain.ErrSweepLocked):
		metrics.IncSweepRun("locked")
		w.logger.Debug().Msg("sweep already running elsewhere, skipped")
	case err != nil:
		metrics.IncSweepRun("error")
		w.logger.Error().Err(err).Msg("sweep failed")
	default:
		metrics.IncSweepRun("ok")
		w.logger.Info().
			Int64("cards_expired", report.CardsExpired).
			Int("renewals_attempted", report.RenewalsAttempted).
			Int64("lapsed", report.Lapsed).
			Msg("sweep run finished")
	}
}

// RunLocked executes one sweep pass under the distributed lock. Shared with
// the CLI entrypoint.
func RunLocked(ctx context.Context, sweep usecase.SweepUseCase, locker redis.Locker, ttl time.Duration) (usecase.SweepReport, error) {
	if locker == nil {
		return sweep.Run(ctx)
	}
	token, err := locker.TryLock(ctx, lockKey, ttl)
	if err != nil {
		return usecase.SweepReport{}, err
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = locker.Unlock(unlockCtx, lockKey, token)
	}()

	return sweep.Run(ctx)
}
