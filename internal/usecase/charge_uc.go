// File: internal/usecase/charge_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"association-membership/internal/domain"
	"association-membership/internal/domain/model"
	"association-membership/internal/domain/ports/adapter"
	"association-membership/internal/domain/ports/repository"
	"association-membership/internal/infra/metrics"
)

// Compile-time check
var _ ChargeUseCase = (*chargeUC)(nil)

// ChargeURLs are the hosted-checkout redirect targets and our notification
// endpoint, passed through to the gateway on every charge.
type ChargeURLs struct {
	Return       string
	Cancel       string
	Notification string
}

type ChargeUseCase interface {
	// CreateClassic initiates a user-requested charge for a catalog product
	// and returns the pending ledger entry plus the hosted payment URL the
	// member must be redirected to. No user or card state is touched.
	CreateClassic(ctx context.Context, userID, subscriptionName, productName string) (*model.Payment, string, error)

	// CreateRecurring initiates a merchant-initiated renewal charge against
	// the user's stored card. When the user has no usable card, no resolvable
	// product or no resolvable subscription it returns (nil, nil): the sweep's
	// lapse pass deals with such users later.
	CreateRecurring(ctx context.Context, userID string) (*model.Payment, error)
}

type chargeUC struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
	cards    repository.CardRepository
	catalog  repository.CatalogRepository
	gateway  adapter.PaymentGateway
	urls     ChargeURLs
	currency string
	log      *zerolog.Logger
}

func NewChargeUseCase(
	users repository.UserRepository,
	payments repository.PaymentRepository,
	cards repository.CardRepository,
	catalog repository.CatalogRepository,
	gateway adapter.PaymentGateway,
	urls ChargeURLs,
	currency string,
	logger *zerolog.Logger,
) *chargeUC {
	l := logger.With().Str("component", "ChargeUC").Logger()
	return &chargeUC{
		users:    users,
		payments: payments,
		cards:    cards,
		catalog:  catalog,
		gateway:  gateway,
		urls:     urls,
		currency: currency,
		log:      &l,
	}
}

func (u *chargeUC) CreateClassic(ctx context.Context, userID, subscriptionName, productName string) (*model.Payment, string, error) {
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, "", err
	}
	sub, product, err := u.catalog.FindProduct(ctx, repository.NoTX, subscriptionName, productName)
	if err != nil {
		return nil, "", err
	}

	amount, err := product.AmountMinor()
	if err != nil {
		return nil, "", err
	}

	// Fresh correlation secret per attempt. The notification must echo it
	// back; anything else is treated as a forgery.
	token := uuid.NewString()

	handle, err := u.gateway.CreateCharge(ctx, adapter.ChargeRequest{
		AmountMinor:     amount,
		Currency:        u.currency,
		CustomerEmail:   user.Email,
		SaveCard:        product.Recurrent,
		Metadata:        map[string]string{"token": token},
		ReturnURL:       u.urls.Return,
		CancelURL:       u.urls.Cancel,
		NotificationURL: u.urls.Notification,
	})
	if err != nil {
		// Nothing persisted: the caller may retry the whole call.
		return nil, "", fmt.Errorf("gateway create charge: %w", err)
	}

	p := u.newPending(handle.ID, token, user.ID, sub.ID, product)
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, "", err
	}
	metrics.IncPaymentCreated("classic")
	u.log.Info().Str("payment_id", p.ID).Str("reference", p.Reference).Msg("classic charge created")
	return p, handle.HostedPaymentURL, nil
}

func (u *chargeUC) CreateRecurring(ctx context.Context, userID string) (*model.Payment, error) {
	today := time.Now()

	// No expiry floor on the lookup: the due query hands us users whose
	// coverage may have run out days ago when a sweep run was missed, and
	// those renewals must still go through.
	current, err := u.payments.LatestPaid(ctx, repository.NoTX, userID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	product, err := u.catalog.FindProductByID(ctx, repository.NoTX, current.ProductID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if !product.Recurrent {
		return nil, nil
	}
	card, err := u.cards.FindAvailable(ctx, repository.NoTX, userID, today)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if !card.Usable(today) {
		return nil, nil
	}
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}

	amount, err := product.AmountMinor()
	if err != nil {
		return nil, err
	}
	token := uuid.NewString()

	handle, err := u.gateway.CreateCharge(ctx, adapter.ChargeRequest{
		AmountMinor:     amount,
		Currency:        u.currency,
		CustomerEmail:   user.Email,
		FirstName:       card.FirstName,
		LastName:        card.LastName,
		SaveCard:        false,
		PaymentMethod:   card.CardID,
		Metadata:        map[string]string{"token": token},
		NotificationURL: u.urls.Notification,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway create recurring charge: %w", err)
	}

	// Even when the gateway settles a merchant-initiated charge synchronously
	// we persist the row pending and let the notification path apply the
	// transition: one settlement code path for every charge.
	p := u.newPending(handle.ID, token, user.ID, current.SubscriptionID, product)
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	metrics.IncPaymentCreated("recurring")
	u.log.Info().Str("payment_id", p.ID).Str("reference", p.Reference).Msg("recurring charge created")
	return p, nil
}

func (u *chargeUC) newPending(reference, token, userID, subscriptionID string, product *model.Product) *model.Payment {
	now := time.Now()
	return &model.Payment{
		ID:              ulid.Make().String(),
		Reference:       reference,
		Token:           token,
		UserID:          userID,
		SubscriptionID:  subscriptionID,
		ProductID:       product.ID,
		Price:           product.Price,
		TaxRate:         product.TaxRate,
		Status:          model.PaymentStatusPending,
		SubscribedUntil: now.AddDate(0, 0, product.DurationDays),
		CreatedAt:       now,
	}
}
