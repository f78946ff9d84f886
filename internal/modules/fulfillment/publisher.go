package fulfillment

import (
	"context"
	"time"
)

// OrderConfirmedEvent is published when an order's payment completes, handing
// the order to warehouse/fulfilment consumers.
type OrderConfirmedEvent struct {
	OrderID        string    `json:"order_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	BuyerID        string    `json:"buyer_id"`
	Total          float64   `json:"total"`
	ItemCount      int       `json:"item_count"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
}

// Publisher emits fulfilment events. Publishing is best-effort: a failed
// publish is logged by the caller and never fails the payment transition.
type Publisher interface {
	PublishOrderConfirmed(ctx context.Context, evt OrderConfirmedEvent) error
}

type noopPublisher struct{}

// NewNoopPublisher is used when no broker is configured.
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) PublishOrderConfirmed(context.Context, OrderConfirmedEvent) error {
	return nil
}
