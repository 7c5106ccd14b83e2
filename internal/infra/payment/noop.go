package payment

import (
	"context"
	"fmt"
	"sync/atomic"

	"association-membership/internal/domain/ports/adapter"
)

// NoopGateway accepts every charge without calling out. Used in dev mode so
// the app runs without gateway credentials.
type NoopGateway struct {
	seq atomic.Int64
}

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

func NewNoopGateway() *NoopGateway { return &NoopGateway{} }

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) CreateCharge(_ context.Context, req adapter.ChargeRequest) (adapter.ChargeHandle, error) {
	id := fmt.Sprintf("noop_%d", g.seq.Add(1))
	return adapter.ChargeHandle{
		ID:               id,
		HostedPaymentURL: "https://example.invalid/pay/" + id,
	}, nil
}

func (g *NoopGateway) RetrieveCharge(_ context.Context, id string) (*adapter.ChargeResult, error) {
	return &adapter.ChargeResult{ID: id, Kind: adapter.KindPayment}, nil
}
