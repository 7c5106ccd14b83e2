package model

import (
	"time"

	"association-membership/internal/domain"
)

// Card is a tokenized payment instrument stored for merchant-initiated
// renewals. We never hold PAN data, only the gateway's card id.
type Card struct {
	ID        string // UUID, internal surrogate key
	UserID    string
	CardID    string // gateway-issued token, unique
	FirstName string // holder name snapshot from the settling notification
	LastName  string
	ExpiresOn time.Time // last day of the card's expiry month
	Available bool
	CreatedAt time.Time
}

// NewCard builds a vault entry from gateway card details. Expiry is widened to
// the last day of the expiry month, matching how issuers treat MM/YY dates.
func NewCard(id, userID, cardID, firstName, lastName string, expMonth, expYear int) (*Card, error) {
	if userID == "" || cardID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if expMonth < 1 || expMonth > 12 || expYear < 2000 {
		return nil, domain.ErrInvalidArgument
	}
	return &Card{
		ID:        id,
		UserID:    userID,
		CardID:    cardID,
		FirstName: firstName,
		LastName:  lastName,
		ExpiresOn: EndOfMonth(expYear, time.Month(expMonth)),
		Available: true,
		CreatedAt: time.Now(),
	}, nil
}

// Usable reports whether the card can back a recurring charge today.
func (c *Card) Usable(today time.Time) bool {
	return c != nil && c.Available && !c.ExpiresOn.Before(dateOnly(today))
}

// EndOfMonth returns the last day of the given month at midnight UTC.
func EndOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}
