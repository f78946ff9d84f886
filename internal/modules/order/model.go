package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an order. Terminal states are
// failed and cancelled (stock released) and confirmed (fulfilment handoff).
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusConfirmed  Status = "confirmed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus is the orthogonal payment axis of an order.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Order is the persisted record of one checkout. Orders are never deleted;
// the table is an append-only audit trail mutated only by the reconciliation
// handlers.
type Order struct {
	ID               uuid.UUID     `json:"id"`
	GatewayOrderID   string        `json:"gateway_order_id,omitempty"` // never changes once set
	BuyerID          string        `json:"buyer_id"`
	BuyerEmail       string        `json:"buyer_email,omitempty"`
	Items            []*LineItem   `json:"items,omitempty"`
	Subtotal         float64       `json:"subtotal"`
	Tax              float64       `json:"tax"`
	Shipping         float64       `json:"shipping"`
	Total            float64       `json:"total"`
	Status           Status        `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	StockReserved    bool          `json:"stock_reserved"`
	RequestHash      string        `json:"-"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty"`
	CapturedAmount   *float64      `json:"captured_amount,omitempty"`
	FailureCode      string        `json:"failure_code,omitempty"`
	FailureReason    string        `json:"failure_reason,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// LineItem snapshots a product at order time. Price and name are copied from
// the catalog when the order is created and never re-derived later.
type LineItem struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	Name      string    `json:"name"`
}

// DeadLetter records a webhook event that referenced an order we could not
// find. The gateway still gets a 200 (a benign race with the order write must
// not trigger a retry storm), but the event is queryable instead of living
// only in a log line.
type DeadLetter struct {
	ID             uuid.UUID       `json:"id"`
	EventType      string          `json:"event_type"`
	GatewayOrderID string          `json:"gateway_order_id"`
	Payload        json.RawMessage `json:"payload"`
	ReceivedAt     time.Time       `json:"received_at"`
}

// ── Request/Response DTOs ─────────────────────────────────────────────────────

// ItemRequest is one cart line as submitted by the storefront.
type ItemRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// CreateOrderRequest is the payload for POST /create-order. Amount is the
// client-declared total; it is cross-checked against the server-side
// computation and never trusted.
type CreateOrderRequest struct {
	Amount           float64       `json:"amount"`
	Items            []ItemRequest `json:"items"`
	UserID           string        `json:"userId"`
	UserEmail        string        `json:"userEmail,omitempty"`
	RequestTimestamp int64         `json:"requestTimestamp,omitempty"`
}

// VerifyPaymentRequest is the client redirect callback payload.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// UpdateStatusRequest is the payload for advancing an order's status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ── Error types ───────────────────────────────────────────────────────────────

// ValidationError marks malformed requests: missing fields, bad item
// structure. Mapped to 400; the client must correct its input.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// AmountMismatchError is the defense against client-side price tampering: the
// declared total disagrees with the server-side recomputation by more than
// the tolerance. Carries the authoritative total so the client can refresh.
type AmountMismatchError struct {
	Declared   float64
	Calculated float64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount validation failed: declared %.2f, calculated %.2f", e.Declared, e.Calculated)
}
