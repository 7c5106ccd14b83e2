// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"association-membership/internal/domain"
	"association-membership/internal/domain/model"
	"association-membership/internal/domain/ports/adapter"
	"association-membership/internal/domain/ports/repository"
	"association-membership/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileUseCase is the notification state machine. Apply consumes one
// verified gateway notification and moves the matching ledger entry from
// pending to its terminal status, adjusting the card vault and the user's
// accreditation as a single transaction.
type ReconcileUseCase interface {
	Apply(ctx context.Context, result *adapter.ChargeResult) error
}

type reconcileUC struct {
	payments repository.PaymentRepository
	cards    repository.CardRepository
	users    repository.UserRepository
	tm       repository.TransactionManager
	alerts   adapter.AlertNotifier
	currency string
	log      *zerolog.Logger
}

func NewReconcileUseCase(
	payments repository.PaymentRepository,
	cards repository.CardRepository,
	users repository.UserRepository,
	tm repository.TransactionManager,
	alerts adapter.AlertNotifier,
	currency string,
	logger *zerolog.Logger,
) *reconcileUC {
	l := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{
		payments: payments,
		cards:    cards,
		users:    users,
		tm:       tm,
		alerts:   alerts,
		currency: currency,
		log:      &l,
	}
}

func (u *reconcileUC) Apply(ctx context.Context, result *adapter.ChargeResult) error {
	if result == nil || result.ID == "" {
		return domain.ErrInvalidArgument
	}
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return u.apply(ctx, tx, result)
	})
}

func (u *reconcileUC) apply(ctx context.Context, tx repository.Tx, result *adapter.ChargeResult) error {
	// FindByReference locks the row inside the transaction, so two concurrent
	// deliveries for the same charge serialize here.
	p, err := u.payments.FindByReference(ctx, tx, result.ID)
	if err != nil {
		if err == domain.ErrNotFound {
			return domain.ErrUnknownPayment
		}
		return err
	}

	if p.Status.Terminal() {
		// Re-delivery. An identical outcome is a successful no-op; anything
		// else is an anomaly we report without overwriting the ledger.
		if u.expectedStatus(p, result) == p.Status {
			metrics.IncNotificationUnhandled("replay")
			u.log.Debug().Str("reference", p.Reference).Str("status", string(p.Status)).Msg("duplicate notification ignored")
			return nil
		}
		u.raiseAlert(ctx, fmt.Sprintf("conflicting notification for settled payment %s (status %s)", p.Reference, p.Status))
		metrics.IncNotificationUnhandled("conflict")
		return domain.ErrConflictingNotification
	}

	switch {
	case result.Kind == adapter.KindPayment && result.IsPaid:
		return u.applyPaid(ctx, tx, p, result)

	case result.Kind == adapter.KindPayment && result.Failure != nil:
		return u.applyFailure(ctx, tx, p, result.Failure)

	default:
		// Refunds and future notification kinds never rewrite a ledger entry:
		// the transition contract is pending -> one terminal status. They are
		// surfaced to operators instead of silently swallowed.
		metrics.IncNotificationUnhandled(result.Kind)
		u.log.Warn().Str("reference", p.Reference).Str("kind", result.Kind).Msg("unhandled notification kind")
		if result.Kind != adapter.KindPayment {
			u.raiseAlert(ctx, fmt.Sprintf("unhandled %q notification for payment %s", result.Kind, p.Reference))
		}
		return nil
	}
}

func (u *reconcileUC) applyPaid(ctx context.Context, tx repository.Tx, p *model.Payment, result *adapter.ChargeResult) error {
	if result.Token() != p.Token {
		// Hard security boundary: a forged or replayed notification for a
		// different transaction must never elevate privilege.
		msg := "correlation token does not match the token stored for this payment"
		if _, err := u.payments.SettleIfPending(ctx, tx, p.ID, model.PaymentStatusFraudSuspected, msg); err != nil {
			return err
		}
		metrics.IncFraudSuspected()
		metrics.IncPaymentSettled(string(model.PaymentStatusFraudSuspected))
		u.log.Warn().Str("reference", p.Reference).Msg("fraud suspected: token mismatch")
		u.raiseAlert(ctx, fmt.Sprintf("fraud suspected on payment %s: correlation token mismatch", p.Reference))
		return nil
	}

	applied, err := u.payments.SettleIfPending(ctx, tx, p.ID, model.PaymentStatusPaid, "")
	if err != nil {
		return err
	}
	if !applied {
		// Lost the race despite the row lock; treat like a replay.
		metrics.IncNotificationUnhandled("replay")
		return nil
	}

	if result.SaveCard && result.Card != nil {
		card, err := model.NewCard(uuid.NewString(), p.UserID, result.Card.ID,
			result.FirstName, result.LastName, result.Card.ExpMonth, result.Card.ExpYear)
		if err != nil {
			return err
		}
		created, err := u.cards.GetOrCreate(ctx, tx, card)
		if err != nil {
			return err
		}
		if created {
			u.log.Info().Str("user_id", p.UserID).Msg("card stored for recurring billing")
		}
	}

	// The only place in the system where accreditation increases.
	if err := u.users.SetAccreditation(ctx, tx, p.UserID, model.AccreditationPaying); err != nil {
		return err
	}

	metrics.IncPaymentSettled(string(model.PaymentStatusPaid))
	metrics.AddRevenue(u.currency, int64(math.Round(p.Price*100)))
	u.log.Info().Str("reference", p.Reference).Str("user_id", p.UserID).Msg("payment settled paid")
	return nil
}

func (u *reconcileUC) applyFailure(ctx context.Context, tx repository.Tx, p *model.Payment, failure *adapter.ChargeFailure) error {
	// A declined or aborted charge is a valid terminal state, not an
	// application error. Accreditation is untouched: first-time subscribers
	// never reached the paying level, renewing ones lapse via the sweep.
	if _, err := u.payments.SettleIfPending(ctx, tx, p.ID, model.PaymentStatus(failure.Code), failure.Message); err != nil {
		return err
	}
	metrics.IncPaymentSettled(failure.Code)
	u.log.Info().Str("reference", p.Reference).Str("code", failure.Code).Msg("payment settled failed")
	return nil
}

// expectedStatus computes the terminal status this payload would produce, for
// replay/conflict classification.
func (u *reconcileUC) expectedStatus(p *model.Payment, result *adapter.ChargeResult) model.PaymentStatus {
	switch {
	case result.Kind == adapter.KindPayment && result.IsPaid:
		if result.Token() != p.Token {
			return model.PaymentStatusFraudSuspected
		}
		return model.PaymentStatusPaid
	case result.Kind == adapter.KindPayment && result.Failure != nil:
		return model.PaymentStatus(result.Failure.Code)
	default:
		// Non-payment kinds never transition state, so a replay against any
		// terminal row is non-conflicting.
		return p.Status
	}
}

func (u *reconcileUC) raiseAlert(ctx context.Context, msg string) {
	if u.alerts == nil {
		return
	}
	if err := u.alerts.Notify(ctx, msg); err != nil {
		u.log.Error().Err(err).Msg("operator alert failed")
	}
}
