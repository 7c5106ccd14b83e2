package model

import (
	"math"

	"association-membership/internal/domain"
)

// Subscription is a named tier in the catalog. Reference data: the core never
// mutates it.
type Subscription struct {
	ID          string
	Name        string
	Description string
}

// Product is a purchasable offer inside a subscription tier. Price is the
// tax-inclusive amount in euros; Duration is the number of days of access a
// successful payment grants.
type Product struct {
	ID             string
	SubscriptionID string
	Name           string
	Price          float64 // EUR, tax included
	TaxRate        float64 // e.g. 0.20
	Recurrent      bool
	DurationDays   int
}

func (p *Product) IsZero() bool { return p == nil || p.ID == "" }

// AmountMinor converts the price to integer cents. Upstream admin tooling is
// supposed to store prices at cent precision already; anything else is a
// rounding bug we refuse to charge.
func (p *Product) AmountMinor() (int64, error) {
	cents := p.Price * 100
	if math.Abs(cents-math.Round(cents)) > 1e-6 {
		return 0, domain.ErrAmountPrecision
	}
	return int64(math.Round(cents)), nil
}

// TaxMinor returns the tax portion of the price in cents, rounded.
func (p *Product) TaxMinor() (int64, error) {
	total, err := p.AmountMinor()
	if err != nil {
		return 0, err
	}
	if p.TaxRate <= 0 {
		return 0, nil
	}
	return int64(math.Round(float64(total) * p.TaxRate / (1 + p.TaxRate))), nil
}
