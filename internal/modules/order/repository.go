package order

import "context"

// Repository defines data access for orders. Orders are append-only: there is
// no delete, and status fields are the only mutable columns.
type Repository interface {
	// Create persists a new order and its line items atomically.
	Create(ctx context.Context, o *Order) error

	// GetByID retrieves an order with its items by UUID.
	GetByID(ctx context.Context, id string) (*Order, error)

	// GetByGatewayOrderID retrieves an order by the payment provider's
	// order id. Returns sql.ErrNoRows when no order carries that id.
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)

	// ListByBuyer returns a buyer's orders, newest first.
	ListByBuyer(ctx context.Context, buyerID string) ([]*Order, error)

	// MarkPaymentCompleted transitions payment_status to completed and
	// status to processing, recording the gateway payment id and optional
	// capture amount.
	MarkPaymentCompleted(ctx context.Context, id string, paymentID string, capturedAmount *float64) error

	// UpdateCaptureMetadata refreshes capture details without touching
	// status fields; used when a capture event replays against an order
	// that already completed.
	UpdateCaptureMetadata(ctx context.Context, id string, paymentID string, capturedAmount float64) error

	// MarkPaymentFailed transitions payment_status and status to failed and
	// records the failure cause.
	MarkPaymentFailed(ctx context.Context, id string, paymentID, failureCode, failureReason string) error

	// UpdateStatus advances the order lifecycle status only.
	UpdateStatus(ctx context.Context, id string, status Status) error

	// RecordDeadLetter stores a webhook event whose order could not be
	// located.
	RecordDeadLetter(ctx context.Context, d *DeadLetter) error
}
