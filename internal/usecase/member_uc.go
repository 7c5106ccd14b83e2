// File: internal/usecase/member_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"association-membership/internal/domain"
	"association-membership/internal/domain/model"
	"association-membership/internal/domain/ports/adapter"
	"association-membership/internal/domain/ports/repository"
	"association-membership/internal/infra/security"
)

// Compile-time check
var _ MemberUseCase = (*memberUC)(nil)

// MemberUseCase covers registration, email validation, credentials and the
// unsubscribe flow. Accreditation writes here are limited to the
// email-validation step (0 -> 1) and unsubscribe (2 -> 1).
type MemberUseCase interface {
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	ValidateEmail(ctx context.Context, token string) error
	ResendValidation(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*model.User, error)
	RequestPasswordReset(ctx context.Context, username, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Unsubscribe(ctx context.Context, userID string) error
}

type memberUC struct {
	users      repository.UserRepository
	payments   repository.PaymentRepository
	cards      repository.CardRepository
	tm         repository.TransactionManager
	mailer     adapter.Mailer
	baseURL    string
	bcryptCost int
	log        *zerolog.Logger
}

func NewMemberUseCase(
	users repository.UserRepository,
	payments repository.PaymentRepository,
	cards repository.CardRepository,
	tm repository.TransactionManager,
	mailer adapter.Mailer,
	baseURL string,
	bcryptCost int,
	logger *zerolog.Logger,
) *memberUC {
	l := logger.With().Str("component", "MemberUC").Logger()
	return &memberUC{
		users:      users,
		payments:   payments,
		cards:      cards,
		tm:         tm,
		mailer:     mailer,
		baseURL:    baseURL,
		bcryptCost: bcryptCost,
		log:        &l,
	}
}

func (u *memberUC) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if username == "" || email == "" || len(password) < 8 {
		return nil, domain.ErrInvalidArgument
	}
	if existing, err := u.users.FindByEmail(ctx, repository.NoTX, email); err == nil && !existing.IsZero() {
		return nil, domain.ErrAlreadyExists
	}

	hash, err := security.HashPassword(password, u.bcryptCost)
	if err != nil {
		return nil, err
	}
	user, err := model.NewUser("", username, email, hash)
	if err != nil {
		return nil, err
	}
	if err := u.users.Save(ctx, repository.NoTX, user); err != nil {
		return nil, err
	}

	link := fmt.Sprintf("%s/api/v1/validate/%s", u.baseURL, user.ValidateToken)
	if err := u.mailer.SendValidationLink(ctx, user.Email, user.Username, link); err != nil {
		u.log.Error().Err(err).Str("user_id", user.ID).Msg("validation mail failed")
	}
	return user, nil
}

func (u *memberUC) ValidateEmail(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrInvalidToken
	}
	user, err := u.users.FindByValidateToken(ctx, repository.NoTX, token)
	if err != nil {
		if err == domain.ErrNotFound {
			return domain.ErrInvalidToken
		}
		return err
	}
	if user.Accreditation != model.AccreditationUnvalidated {
		// Already validated; clicking the link twice is harmless.
		return nil
	}
	return u.users.SetAccreditation(ctx, repository.NoTX, user.ID, model.AccreditationValidated)
}

func (u *memberUC) ResendValidation(ctx context.Context, email string) error {
	user, err := u.users.FindByEmail(ctx, repository.NoTX, email)
	if err != nil {
		return err
	}
	if user.Accreditation != model.AccreditationUnvalidated {
		return nil
	}
	link := fmt.Sprintf("%s/api/v1/validate/%s", u.baseURL, user.ValidateToken)
	return u.mailer.SendValidationLink(ctx, user.Email, user.Username, link)
}

func (u *memberUC) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := u.users.FindByEmail(ctx, repository.NoTX, email)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (u *memberUC) RequestPasswordReset(ctx context.Context, username, email string) error {
	user, err := u.users.FindByEmail(ctx, repository.NoTX, email)
	if err != nil {
		if err == domain.ErrNotFound {
			// Do not reveal whether the address exists.
			return nil
		}
		return err
	}
	if user.Username != username {
		return nil
	}
	user.ResetToken = uuid.NewString()
	if err := u.users.Save(ctx, repository.NoTX, user); err != nil {
		return err
	}
	link := fmt.Sprintf("%s/api/v1/password/reset/%s", u.baseURL, user.ResetToken)
	return u.mailer.SendPasswordResetLink(ctx, user.Email, user.Username, link)
}

func (u *memberUC) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || len(newPassword) < 8 {
		return domain.ErrInvalidArgument
	}
	user, err := u.users.FindByResetToken(ctx, repository.NoTX, token)
	if err != nil {
		if err == domain.ErrNotFound {
			return domain.ErrInvalidToken
		}
		return err
	}
	hash, err := security.HashPassword(newPassword, u.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.ResetToken = ""
	return u.users.Save(ctx, repository.NoTX, user)
}

// Unsubscribe terminates the member's current subscription: the validated
// payment is marked unsubscribed, the stored card invalidated and the
// accreditation dropped to validated level. All three run in one transaction;
// a missing payment or card is skipped, any storage error rolls back the lot.
func (u *memberUC) Unsubscribe(ctx context.Context, userID string) error {
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return err
	}
	if user.Accreditation != model.AccreditationPaying {
		return domain.ErrNotSubscribed
	}

	today := time.Now()
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		current, err := u.payments.LatestValidated(ctx, tx, userID, today)
		switch err {
		case nil:
			if err := u.payments.MarkUnsubscribed(ctx, tx, current.ID); err != nil {
				return err
			}
		case domain.ErrNotFound:
			// nothing to terminate
		default:
			return err
		}

		card, err := u.cards.FindAvailable(ctx, tx, userID, today)
		switch err {
		case nil:
			if err := u.cards.MarkUnavailable(ctx, tx, card.ID); err != nil {
				return err
			}
		case domain.ErrNotFound:
			// no stored card
		default:
			return err
		}

		return u.users.SetAccreditation(ctx, tx, userID, model.AccreditationValidated)
	})
}
