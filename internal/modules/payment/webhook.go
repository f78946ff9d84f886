package payment

import (
	"encoding/json"
	"fmt"
)

// EventType is the closed set of webhook events this service understands.
// Anything else maps to EventUnknown, which is accepted and ignored so new
// gateway event types never cause retry storms.
type EventType string

const (
	EventPaymentCaptured EventType = "payment.captured"
	EventPaymentFailed   EventType = "payment.failed"
	EventOrderPaid       EventType = "order.paid"
	EventUnknown         EventType = "unknown"
)

// PaymentEntity is the payment object inside a webhook payload. Amount is in
// minor units.
type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Status           string `json:"status"`
	ErrorCode        string `json:"error_code,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// OrderEntity is the order object inside a webhook payload.
type OrderEntity struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

// WebhookEvent is the parsed, typed form of a gateway webhook delivery.
// Webhooks arrive at-least-once and possibly out of order; handlers must be
// idempotent.
type WebhookEvent struct {
	Type    EventType
	RawType string // provider's event name, kept for logging and dead letters
	Payment *PaymentEntity
	Order   *OrderEntity
	RawBody []byte
}

// GatewayOrderID returns the remote order id the event refers to, from
// whichever entity carries it.
func (e *WebhookEvent) GatewayOrderID() string {
	if e.Payment != nil && e.Payment.OrderID != "" {
		return e.Payment.OrderID
	}
	if e.Order != nil {
		return e.Order.ID
	}
	return ""
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity *PaymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity *OrderEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// ParseWebhookEvent decodes a raw webhook body into a typed event. Called
// only after the signature over the same bytes has been verified.
func ParseWebhookEvent(rawBody []byte) (*WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	evt := &WebhookEvent{RawType: env.Event, RawBody: rawBody}
	if env.Payload.Payment != nil {
		evt.Payment = env.Payload.Payment.Entity
	}
	if env.Payload.Order != nil {
		evt.Order = env.Payload.Order.Entity
	}

	switch env.Event {
	case string(EventPaymentCaptured):
		evt.Type = EventPaymentCaptured
	case string(EventPaymentFailed):
		evt.Type = EventPaymentFailed
	case string(EventOrderPaid):
		evt.Type = EventOrderPaid
	default:
		evt.Type = EventUnknown
	}
	return evt, nil
}
