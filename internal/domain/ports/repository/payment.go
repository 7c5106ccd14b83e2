package repository

import (
	"context"
	"time"

	"association-membership/internal/domain/model"
)

type PaymentRepository interface {
	// Save inserts a new ledger row. Rows are never deleted.
	Save(ctx context.Context, tx Tx, p *model.Payment) error

	// FindByReference loads a payment by gateway charge id, locking the row
	// when called inside a transaction so concurrent notifications for the
	// same charge serialize.
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Payment, error)

	// SettleIfPending applies the one allowed transition pending -> terminal.
	// Returns false when the row was already terminal.
	SettleIfPending(ctx context.Context, tx Tx, id string, status model.PaymentStatus, errorMessage string) (bool, error)

	// LatestValidated resolves the payment that currently grants access:
	// status=paid AND subscribed_until>=today, furthest-future expiry first.
	// Returns domain.ErrNotFound when the user has none.
	LatestValidated(ctx context.Context, tx Tx, userID string, today time.Time) (*model.Payment, error)

	// LatestPaid resolves the user's newest paid payment with no expiry
	// floor. The renewal path needs it: when a sweep run was missed the due
	// payment may have run out days before the catch-up pass. Returns
	// domain.ErrNotFound when the user never paid.
	LatestPaid(ctx context.Context, tx Tx, userID string) (*model.Payment, error)

	// MarkUnsubscribed terminates a paid payment on member request.
	MarkUnsubscribed(ctx context.Context, tx Tx, id string) error

	// ListRenewalDue returns ids of users at paying level whose latest
	// validated payment on a recurrent product expired within
	// (today-grace, today] and who have no charge attempt created since that
	// expiry date.
	ListRenewalDue(ctx context.Context, tx Tx, today time.Time, graceDays int) ([]string, error)
}
