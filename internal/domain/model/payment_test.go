//go:build !integration

package model

import (
	"testing"
	"time"
)

func TestPaymentStatusTerminal(t *testing.T) {
	if PaymentStatusPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	for _, s := range []PaymentStatus{
		PaymentStatusPaid, PaymentStatusFraudSuspected, PaymentStatusUnsubscribed,
		PaymentStatus("aborted"), PaymentStatus("card_declined"),
	} {
		if !s.Terminal() {
			t.Errorf("%q must be terminal", s)
		}
	}
}

func TestPaymentValidated(t *testing.T) {
	today := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	p := &Payment{Status: PaymentStatusPaid, SubscribedUntil: today}
	if !p.Validated(today) {
		t.Error("payment expiring today still grants access")
	}

	p.SubscribedUntil = today.AddDate(0, 0, -1)
	if p.Validated(today) {
		t.Error("payment expired yesterday must not grant access")
	}

	p = &Payment{Status: PaymentStatusPending, SubscribedUntil: today.AddDate(0, 0, 30)}
	if p.Validated(today) {
		t.Error("pending payment must not grant access")
	}

	p = &Payment{Status: PaymentStatusUnsubscribed, SubscribedUntil: today.AddDate(0, 0, 30)}
	if p.Validated(today) {
		t.Error("unsubscribed payment must not grant access")
	}

	var nilPayment *Payment
	if nilPayment.Validated(today) {
		t.Error("nil payment must not grant access")
	}
}
