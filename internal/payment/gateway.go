// Package payment holds the contract with the external payment gateway as
// seen by this service: webhook verification and decoding.
package payment

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CallbackTokenHeader carries the gateway's shared webhook token.
const CallbackTokenHeader = "x-callback-token"

var (
	// ErrInvalidCallbackToken is returned when the webhook token is missing or wrong.
	ErrInvalidCallbackToken = errors.New("payment: invalid callback token")
	// ErrGatewayMisconfigured is returned when no webhook token is configured.
	ErrGatewayMisconfigured = errors.New("payment: webhook token not configured")
	// ErrInvalidPayload is returned for bodies that do not decode to a WebhookEvent.
	ErrInvalidPayload = errors.New("payment: invalid webhook payload")
)

// Status is the payment state reported by the gateway.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusExpired Status = "EXPIRED"
	StatusFailed  Status = "FAILED"
)

// Metadata is attached to a payment at checkout and echoed back by the gateway.
type Metadata struct {
	PartnerID string `json:"partnerId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// WebhookEvent is a decoded payment status notification.
type WebhookEvent struct {
	OrderID     string   `json:"orderId" validate:"required"`
	Status      Status   `json:"status" validate:"required"`
	Amount      float64  `json:"amount" validate:"gte=0"`
	ServiceType string   `json:"serviceType"`
	Metadata    Metadata `json:"metadata"`
}

// Paid reports whether the order reached the paid state.
func (e *WebhookEvent) Paid() bool {
	return strings.EqualFold(string(e.Status), string(StatusPaid))
}

// Attributed reports whether the payment carries a partner referral.
func (e *WebhookEvent) Attributed() bool {
	return e.Metadata.PartnerID != ""
}

// Gateway verifies and decodes gateway callbacks.
type Gateway interface {
	VerifyWebhook(headers http.Header, body []byte) (*WebhookEvent, error)
}

// CallbackTokenGateway authenticates webhooks with a static shared token.
type CallbackTokenGateway struct {
	token    []byte
	validate *validator.Validate
}

// NewCallbackTokenGateway returns a gateway expecting token in CallbackTokenHeader.
func NewCallbackTokenGateway(token string) *CallbackTokenGateway {
	return &CallbackTokenGateway{
		token:    []byte(token),
		validate: validator.New(),
	}
}

func (g *CallbackTokenGateway) VerifyWebhook(headers http.Header, body []byte) (*WebhookEvent, error) {
	if len(g.token) == 0 {
		return nil, ErrGatewayMisconfigured
	}
	got := headers.Get(CallbackTokenHeader)
	if got == "" || subtle.ConstantTimeCompare([]byte(got), g.token) != 1 {
		return nil, ErrInvalidCallbackToken
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := g.validate.Struct(&event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &event, nil
}
