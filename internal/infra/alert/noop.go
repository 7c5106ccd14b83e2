package alert

import (
	"context"

	"github.com/rs/zerolog"

	"association-membership/internal/domain/ports/adapter"
)

var _ adapter.AlertNotifier = (*LogNotifier)(nil)

// LogNotifier writes alerts to the log only. Used when no Telegram token is
// configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert-log").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, message string) error {
	n.logger.Warn().Str("alert", message).Msg("operator alert")
	return nil
}
