package model

import (
	"time"
)

// PaymentStatus is the ledger status of one charge attempt. The empty string
// means pending: the gateway accepted the charge but no notification has
// settled it yet. Every other value is terminal.
type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = ""               // awaiting gateway notification
	PaymentStatusPaid           PaymentStatus = "paid"           // settled successfully
	PaymentStatusFraudSuspected PaymentStatus = "fraud_suspected" // correlation token mismatch
	PaymentStatusUnsubscribed   PaymentStatus = "unsubscribed"   // voluntarily terminated by the member
	// Gateway failures are recorded verbatim as the failure code the gateway
	// reported, e.g. "aborted", "card_declined", "insufficient_funds".
)

// Terminal reports whether no further transition may be applied.
func (s PaymentStatus) Terminal() bool { return s != PaymentStatusPending }

// Payment is one ledger entry: a single attempt to charge a user for a
// product. Rows are append-mostly and never deleted; the status field
// transitions exactly once, from pending to a terminal value.
type Payment struct {
	ID              string        // ULID, internal surrogate key
	Reference       string        // gateway charge id, unique, notification lookup key
	Token           string        // correlation secret echoed back via gateway metadata
	UserID          string
	SubscriptionID  string
	ProductID       string
	Price           float64 // EUR, tax included, snapshot at charge time
	TaxRate         float64
	Status          PaymentStatus
	ErrorMessage    string
	SubscribedUntil time.Time // access expiry this attempt grants if it settles paid
	CreatedAt       time.Time
}

// Validated reports whether this payment currently grants access.
func (p *Payment) Validated(today time.Time) bool {
	return p != nil && p.Status == PaymentStatusPaid && !p.SubscribedUntil.Before(dateOnly(today))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
