// File: internal/infra/payment/gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"association-membership/internal/config"
	"association-membership/internal/domain"
	"association-membership/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*Gateway)(nil)

// Gateway talks to a PayPlug-compatible REST API. Charges are created
// server-side; the customer finishes on the provider's hosted page and the
// outcome arrives through the notification webhook.
type Gateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
	logger    zerolog.Logger
}

func NewGateway(cfg *config.PaymentConfig, logger *zerolog.Logger) *Gateway {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "payment-gateway").Logger(),
	}
}

func (g *Gateway) Name() string { return "payplug" }

// wirePayment mirrors the provider's payment resource. Amounts are integer
// minor units on the wire.
type wirePayment struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	IsPaid        bool              `json:"is_paid"`
	SaveCard      bool              `json:"save_card"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`

	Failure *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"failure,omitempty"`

	Card *struct {
		ID       string `json:"id"`
		ExpMonth int    `json:"exp_month"`
		ExpYear  int    `json:"exp_year"`
	} `json:"card,omitempty"`

	Billing *struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	} `json:"billing,omitempty"`

	HostedPayment *struct {
		PaymentURL string `json:"payment_url"`
		ReturnURL  string `json:"return_url"`
		CancelURL  string `json:"cancel_url"`
	} `json:"hosted_payment,omitempty"`

	NotificationURL string `json:"notification_url,omitempty"`
}

func (g *Gateway) CreateCharge(ctx context.Context, req adapter.ChargeRequest) (adapter.ChargeHandle, error) {
	body := map[string]interface{}{
		"amount":           req.AmountMinor,
		"currency":         req.Currency,
		"save_card":        req.SaveCard,
		"metadata":         req.Metadata,
		"notification_url": req.NotificationURL,
		"billing": map[string]string{
			"first_name": req.FirstName,
			"last_name":  req.LastName,
			"email":      req.CustomerEmail,
		},
	}
	if req.PaymentMethod != "" {
		// Merchant-initiated charge against a vaulted card.
		body["payment_method"] = req.PaymentMethod
		body["initiator"] = "merchant"
	} else {
		body["hosted_payment"] = map[string]string{
			"return_url": req.ReturnURL,
			"cancel_url": req.CancelURL,
		}
	}

	var wp wirePayment
	if err := g.do(ctx, http.MethodPost, "/v1/payments", body, &wp); err != nil {
		return adapter.ChargeHandle{}, err
	}

	h := adapter.ChargeHandle{ID: wp.ID, IsPaid: wp.IsPaid}
	if wp.HostedPayment != nil {
		h.HostedPaymentURL = wp.HostedPayment.PaymentURL
	}
	g.logger.Debug().Str("charge_id", wp.ID).Int64("amount", req.AmountMinor).Msg("charge created")
	return h, nil
}

func (g *Gateway) RetrieveCharge(ctx context.Context, id string) (*adapter.ChargeResult, error) {
	var wp wirePayment
	if err := g.do(ctx, http.MethodGet, "/v1/payments/"+id, nil, &wp); err != nil {
		return nil, err
	}
	return resultFromWire(&wp), nil
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		g.logger.Error().Int("status", resp.StatusCode).Str("path", path).
			Str("body", string(payload)).Msg("gateway call failed")
		return fmt.Errorf("gateway %s %s: status %d: %w", method, path, resp.StatusCode, domain.ErrOperationFailed)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func resultFromWire(wp *wirePayment) *adapter.ChargeResult {
	res := &adapter.ChargeResult{
		ID:       wp.ID,
		Kind:     wp.Object,
		IsPaid:   wp.IsPaid,
		Metadata: wp.Metadata,
		SaveCard: wp.SaveCard,
	}
	if res.Kind == "" {
		res.Kind = adapter.KindPayment
	}
	if wp.Failure != nil {
		res.Failure = &adapter.ChargeFailure{Code: wp.Failure.Code, Message: wp.Failure.Message}
	}
	if wp.Card != nil && wp.Card.ID != "" {
		res.Card = &adapter.CardInfo{ID: wp.Card.ID, ExpMonth: wp.Card.ExpMonth, ExpYear: wp.Card.ExpYear}
	}
	if wp.Billing != nil {
		res.FirstName = wp.Billing.FirstName
		res.LastName = wp.Billing.LastName
	}
	return res
}
