package repository

import (
	"context"
	"time"

	"association-membership/internal/domain/model"
)

type CardRepository interface {
	// GetOrCreate inserts the card unless a row with the same gateway card id
	// exists. Atomic: two concurrent notifications carrying the same card
	// yield one row. Returns true when a row was inserted.
	GetOrCreate(ctx context.Context, tx Tx, c *model.Card) (bool, error)

	// FindAvailable returns the user's newest available, non-expired card.
	FindAvailable(ctx context.Context, tx Tx, userID string, today time.Time) (*model.Card, error)

	// ExpireOlderThan marks every available card with expiry before today as
	// unavailable. Returns the number of rows updated.
	ExpireOlderThan(ctx context.Context, tx Tx, today time.Time) (int64, error)

	MarkUnavailable(ctx context.Context, tx Tx, id string) error
}
