package adapter

import "context"

// AlertNotifier delivers operator-facing alerts (fraud suspicions, conflicting
// notifications). Best effort: a failed alert must never fail the transaction
// that raised it.
type AlertNotifier interface {
	Notify(ctx context.Context, message string) error
}
