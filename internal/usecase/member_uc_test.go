// File: internal/usecase/member_uc_test.go
//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"association-membership/internal/domain"
	"association-membership/internal/domain/model"
	"association-membership/internal/domain/ports/repository"
	"association-membership/internal/usecase"
)

type memberUCTestDeps struct {
	users    *MockUserRepo
	payments *MockPaymentRepo
	cards    *MockCardRepo
	tm       *MockTxManager
	mailer   *MockMailer
}

func newMemberUCDeps() *memberUCTestDeps {
	return &memberUCTestDeps{
		users:    NewMockUserRepo(),
		payments: NewMockPaymentRepo(),
		cards:    NewMockCardRepo(),
		tm:       NewMockTxManager(),
		mailer:   &MockMailer{},
	}
}

func (d *memberUCTestDeps) uc() usecase.MemberUseCase {
	// bcrypt cost 4 keeps the tests fast
	return usecase.NewMemberUseCase(d.users, d.payments, d.cards, d.tm, d.mailer,
		"https://app.example", 4, newTestLogger())
}

func TestMemberUseCase_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an unvalidated user and mails the validation link", func(t *testing.T) {
		deps := newMemberUCDeps()
		user, err := deps.uc().Register(ctx, "alice", "alice@example.org", "s3cret-password")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.Accreditation != model.AccreditationUnvalidated {
			t.Errorf("expected unvalidated accreditation, got %v", user.Accreditation)
		}
		if user.ValidateToken == "" {
			t.Error("expected a validation token")
		}
		if user.PasswordHash == "s3cret-password" {
			t.Error("password stored in clear")
		}
		if len(deps.mailer.Validations) != 1 {
			t.Fatalf("expected 1 validation mail, got %d", len(deps.mailer.Validations))
		}
		if !strings.Contains(deps.mailer.Validations[0], user.ValidateToken) {
			t.Error("mail link must carry the validation token")
		}
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		deps := newMemberUCDeps()
		_, err := deps.uc().Register(ctx, "alice", "alice@example.org", "short")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		deps := newMemberUCDeps()
		if _, err := deps.uc().Register(ctx, "alice", "alice@example.org", "s3cret-password"); err != nil {
			t.Fatal(err)
		}
		_, err := deps.uc().Register(ctx, "alice2", "alice@example.org", "s3cret-password")
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestMemberUseCase_ValidateEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("raises accreditation to validated once", func(t *testing.T) {
		deps := newMemberUCDeps()
		user, err := deps.uc().Register(ctx, "alice", "alice@example.org", "s3cret-password")
		if err != nil {
			t.Fatal(err)
		}

		if err := deps.uc().ValidateEmail(ctx, user.ValidateToken); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, _ := deps.users.FindByID(ctx, repository.NoTX, user.ID)
		if got.Accreditation != model.AccreditationValidated {
			t.Errorf("expected validated, got %v", got.Accreditation)
		}

		// Clicking the link twice is harmless and never downgrades.
		_ = deps.users.SetAccreditation(ctx, repository.NoTX, user.ID, model.AccreditationPaying)
		if err := deps.uc().ValidateEmail(ctx, user.ValidateToken); err != nil {
			t.Fatalf("second click errored: %v", err)
		}
		got, _ = deps.users.FindByID(ctx, repository.NoTX, user.ID)
		if got.Accreditation != model.AccreditationPaying {
			t.Errorf("second validation downgraded to %v", got.Accreditation)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		deps := newMemberUCDeps()
		if err := deps.uc().ValidateEmail(ctx, "nope"); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestMemberUseCase_Login(t *testing.T) {
	ctx := context.Background()

	deps := newMemberUCDeps()
	if _, err := deps.uc().Register(ctx, "alice", "alice@example.org", "s3cret-password"); err != nil {
		t.Fatal(err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		user, err := deps.uc().Login(ctx, "alice@example.org", "s3cret-password")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.Username != "alice" {
			t.Errorf("unexpected user %q", user.Username)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := deps.uc().Login(ctx, "alice@example.org", "wrong-password")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email answers the same as a wrong password", func(t *testing.T) {
		_, err := deps.uc().Login(ctx, "bob@example.org", "whatever-password")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestMemberUseCase_PasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("full reset round trip", func(t *testing.T) {
		deps := newMemberUCDeps()
		if _, err := deps.uc().Register(ctx, "alice", "alice@example.org", "s3cret-password"); err != nil {
			t.Fatal(err)
		}

		if err := deps.uc().RequestPasswordReset(ctx, "alice", "alice@example.org"); err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if len(deps.mailer.Resets) != 1 {
			t.Fatalf("expected 1 reset mail, got %d", len(deps.mailer.Resets))
		}

		user, _ := deps.users.FindByEmail(ctx, repository.NoTX, "alice@example.org")
		if user.ResetToken == "" {
			t.Fatal("expected a reset token on the user")
		}

		if err := deps.uc().ResetPassword(ctx, user.ResetToken, "brand-new-password"); err != nil {
			t.Fatalf("reset failed: %v", err)
		}
		if _, err := deps.uc().Login(ctx, "alice@example.org", "brand-new-password"); err != nil {
			t.Errorf("login with new password failed: %v", err)
		}
		if _, err := deps.uc().Login(ctx, "alice@example.org", "s3cret-password"); err == nil {
			t.Error("old password still accepted")
		}

		// Token is one-shot.
		if err := deps.uc().ResetPassword(ctx, user.ResetToken, "another-password"); !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken on reuse, got %v", err)
		}
	})

	t.Run("unknown email stays silent", func(t *testing.T) {
		deps := newMemberUCDeps()
		if err := deps.uc().RequestPasswordReset(ctx, "bob", "bob@example.org"); err != nil {
			t.Fatalf("expected silence, got %v", err)
		}
		if len(deps.mailer.Resets) != 0 {
			t.Error("no mail must go out for an unknown address")
		}
	})

	t.Run("username mismatch stays silent", func(t *testing.T) {
		deps := newMemberUCDeps()
		if _, err := deps.uc().Register(ctx, "alice", "alice@example.org", "s3cret-password"); err != nil {
			t.Fatal(err)
		}
		if err := deps.uc().RequestPasswordReset(ctx, "mallory", "alice@example.org"); err != nil {
			t.Fatalf("expected silence, got %v", err)
		}
		if len(deps.mailer.Resets) != 0 {
			t.Error("no mail must go out on a username mismatch")
		}
	})
}

func TestMemberUseCase_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	seedPayingMember := func(t *testing.T, deps *memberUCTestDeps) {
		t.Helper()
		u := &model.User{ID: "user-1", Username: "alice", Email: "alice@example.org",
			PasswordHash: "x", Accreditation: model.AccreditationPaying}
		if err := deps.users.Save(ctx, repository.NoTX, u); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("terminates payment, card and accreditation together", func(t *testing.T) {
		deps := newMemberUCDeps()
		seedPayingMember(t, deps)
		_ = deps.payments.Save(ctx, repository.NoTX, &model.Payment{
			ID: "pay-1", Reference: "ref-1", UserID: "user-1", Status: model.PaymentStatusPaid,
			SubscribedUntil: now.AddDate(0, 0, 200), CreatedAt: now,
		})
		card, _ := model.NewCard("card-row-1", "user-1", "gw-card-1", "Alice", "Smith",
			int(now.Month()), now.Year()+1)
		_, _ = deps.cards.GetOrCreate(ctx, repository.NoTX, card)

		if err := deps.uc().Unsubscribe(ctx, "user-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p := deps.payments.Get("pay-1"); p.Status != model.PaymentStatusUnsubscribed {
			t.Errorf("expected unsubscribed, got %q", p.Status)
		}
		if c := deps.cards.Get("gw-card-1"); c.Available {
			t.Error("card must be invalidated")
		}
		u, _ := deps.users.FindByID(ctx, repository.NoTX, "user-1")
		if u.Accreditation != model.AccreditationValidated {
			t.Errorf("expected validated accreditation, got %v", u.Accreditation)
		}
	})

	t.Run("missing payment and card are skipped, accreditation still drops", func(t *testing.T) {
		deps := newMemberUCDeps()
		seedPayingMember(t, deps)

		if err := deps.uc().Unsubscribe(ctx, "user-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		u, _ := deps.users.FindByID(ctx, repository.NoTX, "user-1")
		if u.Accreditation != model.AccreditationValidated {
			t.Errorf("expected validated accreditation, got %v", u.Accreditation)
		}
	})

	t.Run("non-paying member is rejected", func(t *testing.T) {
		deps := newMemberUCDeps()
		u := &model.User{ID: "user-1", Username: "alice", Email: "alice@example.org",
			PasswordHash: "x", Accreditation: model.AccreditationValidated}
		_ = deps.users.Save(ctx, repository.NoTX, u)

		if err := deps.uc().Unsubscribe(ctx, "user-1"); !errors.Is(err, domain.ErrNotSubscribed) {
			t.Fatalf("expected ErrNotSubscribed, got %v", err)
		}
	})

	t.Run("storage error rolls the transaction back", func(t *testing.T) {
		deps := newMemberUCDeps()
		seedPayingMember(t, deps)
		deps.users.SetAccreditationFunc = func(ctx context.Context, tx repository.Tx, userID string, level model.Accreditation) error {
			return domain.ErrOperationFailed
		}

		if err := deps.uc().Unsubscribe(ctx, "user-1"); !errors.Is(err, domain.ErrOperationFailed) {
			t.Fatalf("expected ErrOperationFailed, got %v", err)
		}
	})
}
