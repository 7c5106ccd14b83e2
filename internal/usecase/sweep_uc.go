// File: internal/usecase/sweep_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"association-membership/internal/domain/ports/repository"
	"association-membership/internal/infra/metrics"
)

// Compile-time check
var _ SweepUseCase = (*sweepUC)(nil)

// SweepReport summarizes one maintenance pass.
type SweepReport struct {
	CardsExpired      int64
	RenewalsAttempted int
	Lapsed            int64
}

// SweepUseCase is the periodic maintenance job: expire stale cards, trigger
// recurring renewals, downgrade lapsed subscribers. Every sub-task is a
// set-based conditional update, so running the sweep twice in a row is a
// no-op the second time.
type SweepUseCase interface {
	Run(ctx context.Context) (SweepReport, error)
}

type sweepUC struct {
	users     repository.UserRepository
	payments  repository.PaymentRepository
	cards     repository.CardRepository
	charges   ChargeUseCase
	graceDays int
	log       *zerolog.Logger
}

func NewSweepUseCase(
	users repository.UserRepository,
	payments repository.PaymentRepository,
	cards repository.CardRepository,
	charges ChargeUseCase,
	graceDays int,
	logger *zerolog.Logger,
) *sweepUC {
	if graceDays <= 0 {
		graceDays = 1
	}
	l := logger.With().Str("component", "SweepUC").Logger()
	return &sweepUC{
		users:     users,
		payments:  payments,
		cards:     cards,
		charges:   charges,
		graceDays: graceDays,
		log:       &l,
	}
}

func (u *sweepUC) Run(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	today := time.Now()

	expired, err := u.cards.ExpireOlderThan(ctx, repository.NoTX, today)
	if err != nil {
		return report, err
	}
	report.CardsExpired = expired
	metrics.AddCardsExpired(expired)

	// Renewals run before the lapse pass so a member whose access ends today
	// gets a charge attempt while still at paying level. The due query
	// excludes users who already have an attempt for this cycle, so a second
	// run the same day creates nothing.
	dueUsers, err := u.payments.ListRenewalDue(ctx, repository.NoTX, today, u.graceDays)
	if err != nil {
		return report, err
	}
	for _, userID := range dueUsers {
		p, err := u.charges.CreateRecurring(ctx, userID)
		if err != nil {
			u.log.Error().Err(err).Str("user_id", userID).Msg("renewal charge failed")
			continue
		}
		if p != nil {
			report.RenewalsAttempted++
			metrics.IncRenewalAttempted()
		}
	}

	lapsed, err := u.users.LapseExpired(ctx, repository.NoTX, today)
	if err != nil {
		return report, err
	}
	report.Lapsed = lapsed
	metrics.AddAccreditationsLapsed(lapsed)

	u.log.Info().
		Int64("cards_expired", report.CardsExpired).
		Int("renewals_attempted", report.RenewalsAttempted).
		Int64("lapsed", report.Lapsed).
		Msg("sweep completed")
	return report, nil
}
