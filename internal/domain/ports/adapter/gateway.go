package adapter

import "context"

// ChargeRequest carries everything the gateway needs to create a charge. The
// metadata correlation token is ours; the gateway echoes it back untouched in
// the asynchronous notification.
type ChargeRequest struct {
	AmountMinor     int64
	Currency        string
	CustomerEmail   string
	FirstName       string
	LastName        string
	SaveCard        bool
	PaymentMethod   string // stored card token; set only for merchant-initiated charges
	Metadata        map[string]string
	ReturnURL       string
	CancelURL       string
	NotificationURL string
}

// ChargeHandle is the gateway's acceptance of a charge request.
type ChargeHandle struct {
	ID               string // gateway charge id; becomes Payment.Reference
	HostedPaymentURL string // where the customer completes payment
	IsPaid           bool   // merchant-initiated charges may settle synchronously
}

type ChargeFailure struct {
	Code    string
	Message string
}

type CardInfo struct {
	ID       string // gateway card token
	ExpMonth int
	ExpYear  int
}

// ChargeResult is the verified content of an asynchronous gateway
// notification, or the response to RetrieveCharge.
type ChargeResult struct {
	ID        string // gateway charge id
	Kind      string // "payment" | "refund" | anything future
	IsPaid    bool
	Failure   *ChargeFailure
	Metadata  map[string]string
	SaveCard  bool
	Card      *CardInfo
	FirstName string
	LastName  string
}

const KindPayment = "payment"

// Token returns the correlation token echoed in the notification metadata.
func (r *ChargeResult) Token() string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata["token"]
}

// PaymentGateway is the hex port for the external payment provider. Calls
// must carry bounded timeouts; the hosted checkout UI and actual charge
// execution live entirely on the provider side.
type PaymentGateway interface {
	Name() string
	CreateCharge(ctx context.Context, req ChargeRequest) (ChargeHandle, error)
	RetrieveCharge(ctx context.Context, id string) (*ChargeResult, error)
}
