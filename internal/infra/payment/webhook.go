// File: internal/infra/payment/webhook.go
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"association-membership/internal/domain/ports/adapter"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw notification body.
const SignatureHeader = "X-Gateway-Signature"

var (
	ErrBadSignature = errors.New("notification signature mismatch")
	ErrBadPayload   = errors.New("notification payload malformed")
)

// WebhookVerifier authenticates asynchronous gateway notifications before any
// of their content is trusted.
type WebhookVerifier struct {
	secret []byte
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

func (v *WebhookVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Parse verifies the signature over the raw body and decodes the notification
// into a ChargeResult. The body must be the exact bytes received.
func (v *WebhookVerifier) Parse(body []byte, signature string) (*adapter.ChargeResult, error) {
	if !hmac.Equal([]byte(v.Sign(body)), []byte(signature)) {
		return nil, ErrBadSignature
	}

	var wp wirePayment
	if err := json.Unmarshal(body, &wp); err != nil {
		return nil, ErrBadPayload
	}
	if wp.ID == "" {
		return nil, ErrBadPayload
	}
	return resultFromWire(&wp), nil
}
