// File: internal/infra/mail/log_mailer.go
package mail

import (
	"context"

	"github.com/rs/zerolog"

	"association-membership/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*LogMailer)(nil)

// LogMailer records outbound mail in the log instead of sending it. SMTP
// delivery is handled by the hosting environment; this keeps local and test
// runs self-contained.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger *zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) SendValidationLink(_ context.Context, email, username, link string) error {
	m.logger.Info().Str("email", email).Str("username", username).Str("link", link).Msg("validation mail")
	return nil
}

func (m *LogMailer) SendPasswordResetLink(_ context.Context, email, username, link string) error {
	m.logger.Info().Str("email", email).Str("username", username).Str("link", link).Msg("password reset mail")
	return nil
}
