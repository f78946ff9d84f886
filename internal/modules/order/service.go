package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/madhubanicraft/commerce-backend/internal/modules/catalog"
	"github.com/madhubanicraft/commerce-backend/internal/modules/fulfillment"
	"github.com/madhubanicraft/commerce-backend/internal/modules/idempotency"
	"github.com/madhubanicraft/commerce-backend/internal/modules/inventory"
	"github.com/madhubanicraft/commerce-backend/internal/modules/payment"
)

// Service orchestrates checkout and reconciles the three independent payment
// signals (client verify call, capture webhook, failure/order-paid webhook)
// into one consistent order/stock state.
type Service interface {
	// CreateOrder runs the full checkout sequence and returns the exact
	// response bytes, so idempotent replays are byte-identical.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (json.RawMessage, error)

	// VerifyPayment checks the client-asserted payment signature and
	// transitions the order. Returns payment.ErrSignatureInvalid on a
	// forged or corrupted signature.
	VerifyPayment(ctx context.Context, req VerifyPaymentRequest) error

	// HandleWebhook verifies the webhook signature over the raw body and
	// dispatches the event. Unknown event types are accepted and ignored.
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) error

	GetOrder(ctx context.Context, id string) (*Order, error)
	ListBuyerOrders(ctx context.Context, buyerID string) ([]*Order, error)

	// UpdateStatus advances an order along the admin lifecycle
	// (processing → confirmed).
	UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*Order, error)

	// CancelOrder cancels a pending order and releases its reservation.
	CancelOrder(ctx context.Context, id string) error
}

type service struct {
	repo      Repository
	catalog   catalog.Service
	stock     inventory.Service
	idem      idempotency.Store
	fp        *idempotency.Fingerprinter
	gateway   payment.Gateway
	publisher fulfillment.Publisher
	logger    *slog.Logger
}

// NewService wires the order service. Every collaborator is injected so tests
// can substitute fakes.
func NewService(
	repo Repository,
	catalogSvc catalog.Service,
	stock inventory.Service,
	idem idempotency.Store,
	fp *idempotency.Fingerprinter,
	gateway payment.Gateway,
	publisher fulfillment.Publisher,
	logger *slog.Logger,
) Service {
	return &service{
		repo:      repo,
		catalog:   catalogSvc,
		stock:     stock,
		idem:      idem,
		fp:        fp,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
	}
}

// validTransitions defines the admin-driven part of the status state machine.
// Payment-driven transitions (pending→processing, →failed) go through the
// reconciliation handlers, not UpdateStatus.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusCancelled},
	StatusProcessing: {StatusConfirmed},
	StatusConfirmed:  {},
	StatusFailed:     {},
	StatusCancelled:  {},
}

// CreateOrderResponse is the gateway's order object merged with the computed
// totals and the local order id.
type CreateOrderResponse struct {
	payment.GatewayOrder
	CalculatedTotals Totals `json:"calculatedTotals"`
	OrderID          string `json:"orderId"`
}

func (s *service) CreateOrder(ctx context.Context, req CreateOrderRequest) (json.RawMessage, error) {
	if req.Amount <= 0 || len(req.Items) == 0 || req.UserID == "" {
		return nil, ValidationError("missing required fields: amount, items, userId")
	}

	timestamp := req.RequestTimestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}
	requestHash, err := s.fp.Fingerprint(req.UserID, req.Items, timestamp)
	if err != nil {
		return nil, err
	}

	// Short-circuit retried requests with the stored response, byte for
	// byte. Lookup failures fall through to normal processing.
	if existing, err := s.idem.Lookup(ctx, requestHash); err != nil {
		s.logger.Error("idempotency lookup failed", "requestHash", requestHash, "error", err)
	} else if existing != nil {
		s.logger.Info("returning existing order for duplicate request", "requestHash", requestHash)
		return existing, nil
	}

	if err := ValidateItems(req.Items); err != nil {
		return nil, err
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ID
	}
	prices, err := s.catalog.FetchPrices(ctx, ids)
	if err != nil {
		return nil, err
	}

	if issues := CheckStock(req.Items, prices); len(issues) > 0 {
		return nil, &inventory.StockConflictError{Issues: issues}
	}

	totals := ComputeTotals(req.Items, prices)
	if err := CheckAmount(req.Amount, totals); err != nil {
		s.logger.Error("amount mismatch detected",
			"userId", req.UserID, "received", req.Amount, "calculated", totals.Total)
		return nil, err
	}

	buyerEmail := req.UserEmail
	if buyerEmail == "" {
		buyerEmail = "guest@example.com"
	}

	// No local state is mutated before this call succeeds, so a gateway
	// failure leaves no orphaned reservation.
	gatewayOrder, err := s.gateway.CreateOrder(ctx, &payment.CreateOrderRequest{
		AmountMinor: toMinorUnits(totals.Total),
		Currency:    "INR",
		Receipt:     generateReceipt(),
		Notes: map[string]string{
			"userId":          req.UserID,
			"userEmail":       buyerEmail,
			"itemCount":       strconv.Itoa(len(req.Items)),
			"calculatedTotal": strconv.FormatFloat(totals.Total, 'f', 2, 64),
			"requestHash":     requestHash,
		},
	})
	if err != nil {
		return nil, err
	}

	lines := toLines(req.Items)
	if err := s.stock.Reserve(ctx, gatewayOrder.ID, lines); err != nil {
		return nil, err
	}

	o := &Order{
		ID:             uuid.New(),
		GatewayOrderID: gatewayOrder.ID,
		BuyerID:        req.UserID,
		BuyerEmail:     buyerEmail,
		Subtotal:       totals.Subtotal,
		Tax:            totals.Tax,
		Shipping:       totals.Shipping,
		Total:          totals.Total,
		Status:         StatusPending,
		PaymentStatus:  PaymentPending,
		StockReserved:  true,
		RequestHash:    requestHash,
	}
	for _, item := range req.Items {
		o.Items = append(o.Items, &LineItem{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ProductID: item.ID,
			Quantity:  item.Quantity,
			UnitPrice: prices[item.ID].Price,
			Name:      prices[item.ID].Name,
		})
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	response, err := json.Marshal(CreateOrderResponse{
		GatewayOrder:     *gatewayOrder,
		CalculatedTotals: totals,
		OrderID:          o.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	// Best-effort: the order exists, so a failed store only degrades
	// duplicate suppression.
	if err := s.idem.Save(ctx, requestHash, response); err != nil {
		s.logger.Error("failed to store idempotency result", "requestHash", requestHash, "error", err)
	}

	s.logger.Info("order created",
		"gatewayOrderId", gatewayOrder.ID, "orderId", o.ID.String(),
		"userId", req.UserID, "total", totals.Total, "itemCount", len(req.Items))
	return response, nil
}

func (s *service) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) error {
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return ValidationError("missing required payment verification fields")
	}

	if !s.gateway.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature) {
		s.logger.Error("payment verification failed",
			"orderId", req.OrderID, "paymentId", req.PaymentID,
			"expectedSignature", s.gateway.ExpectedPaymentSignature(req.OrderID, req.PaymentID),
			"receivedSignature", req.Signature)
		o, err := s.repo.GetByGatewayOrderID(ctx, req.OrderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("order not found for payment status update", "gatewayOrderId", req.OrderID)
				return payment.ErrSignatureInvalid
			}
			return err
		}
		if err := s.failOrder(ctx, o, req.PaymentID, "SIGNATURE_INVALID", "signature verification failed"); err != nil {
			return err
		}
		return payment.ErrSignatureInvalid
	}

	s.logger.Info("payment verified", "orderId", req.OrderID, "paymentId", req.PaymentID)
	return s.completePayment(ctx, req.OrderID, req.PaymentID, nil)
}

func (s *service) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(rawBody, signature) {
		s.logger.Error("webhook signature verification failed", "receivedSignature", signature)
		return payment.ErrSignatureInvalid
	}

	evt, err := payment.ParseWebhookEvent(rawBody)
	if err != nil {
		return err
	}
	s.logger.Info("webhook received",
		"event", evt.RawType, "gatewayOrderId", evt.GatewayOrderID())

	switch evt.Type {
	case payment.EventPaymentCaptured:
		return s.handlePaymentCaptured(ctx, evt)
	case payment.EventPaymentFailed:
		return s.handlePaymentFailed(ctx, evt)
	case payment.EventOrderPaid:
		return s.handleOrderPaid(ctx, evt)
	case payment.EventUnknown:
		s.logger.Info("unhandled webhook event", "event", evt.RawType)
		return nil
	}
	return nil
}

// handlePaymentCaptured records a successful capture. Replays against an
// already-completed order refresh capture metadata only; status fields and
// the stock reservation are untouched.
func (s *service) handlePaymentCaptured(ctx context.Context, evt *payment.WebhookEvent) error {
	p := evt.Payment
	if p == nil || p.OrderID == "" {
		s.logger.Warn("payment.captured event without payment entity")
		return nil
	}

	o, err := s.repo.GetByGatewayOrderID(ctx, p.OrderID)
	if err != nil {
		return s.orderNotFound(ctx, evt, p.OrderID, err)
	}

	captured := float64(p.Amount) / 100
	if o.PaymentStatus == PaymentCompleted {
		s.logger.Info("payment already completed, refreshing capture metadata",
			"orderId", o.ID.String(), "gatewayOrderId", p.OrderID)
		return s.repo.UpdateCaptureMetadata(ctx, o.ID.String(), p.ID, captured)
	}

	if err := s.repo.MarkPaymentCompleted(ctx, o.ID.String(), p.ID, &captured); err != nil {
		return err
	}
	s.logger.Info("payment captured processed",
		"orderId", o.ID.String(), "gatewayOrderId", p.OrderID, "paymentId", p.ID)
	s.publishConfirmed(ctx, o)
	return nil
}

// handlePaymentFailed marks the order failed and releases the reservation.
// The release is guarded by the stock_reserved flag, so a replayed event
// never double-credits stock.
func (s *service) handlePaymentFailed(ctx context.Context, evt *payment.WebhookEvent) error {
	p := evt.Payment
	if p == nil || p.OrderID == "" {
		s.logger.Warn("payment.failed event without payment entity")
		return nil
	}

	o, err := s.repo.GetByGatewayOrderID(ctx, p.OrderID)
	if err != nil {
		return s.orderNotFound(ctx, evt, p.OrderID, err)
	}
	return s.failOrder(ctx, o, p.ID, p.ErrorCode, p.ErrorDescription)
}

// handleOrderPaid is the backstop for a missed capture event: it completes
// the payment only while it is still pending.
func (s *service) handleOrderPaid(ctx context.Context, evt *payment.WebhookEvent) error {
	entity := evt.Order
	if entity == nil || entity.ID == "" {
		s.logger.Warn("order.paid event without order entity")
		return nil
	}

	o, err := s.repo.GetByGatewayOrderID(ctx, entity.ID)
	if err != nil {
		return s.orderNotFound(ctx, evt, entity.ID, err)
	}
	if o.PaymentStatus != PaymentPending {
		s.logger.Info("order payment status already updated",
			"orderId", o.ID.String(), "paymentStatus", string(o.PaymentStatus))
		return nil
	}

	if err := s.repo.MarkPaymentCompleted(ctx, o.ID.String(), "", nil); err != nil {
		return err
	}
	s.logger.Info("order paid processed", "orderId", o.ID.String(), "gatewayOrderId", entity.ID)
	s.publishConfirmed(ctx, o)
	return nil
}

func (s *service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID string) ([]*Order, error) {
	return s.repo.ListByBuyer(ctx, buyerID)
}

func (s *service) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}

	newStatus := Status(strings.ToLower(req.Status))
	valid := false
	for _, allowed := range validTransitions[o.Status] {
		if allowed == newStatus {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("cannot transition order from %s to %s", o.Status, newStatus)
	}

	if newStatus == StatusCancelled {
		if err := s.CancelOrder(ctx, id); err != nil {
			return nil, err
		}
	} else if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, err
	}
	o.Status = newStatus
	return o, nil
}

func (s *service) CancelOrder(ctx context.Context, id string) error {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("order not found: %w", err)
	}
	if o.Status != StatusPending {
		return fmt.Errorf("only pending orders can be cancelled (current: %s)", o.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return err
	}
	if _, err := s.stock.Release(ctx, o.ID.String(), itemsToLines(o.Items)); err != nil {
		return err
	}
	return nil
}

// ── reconciliation helpers ────────────────────────────────────────────────────

// completePayment applies the success transition idempotently: an order that
// already completed is left untouched.
func (s *service) completePayment(ctx context.Context, gatewayOrderID, paymentID string, capturedAmount *float64) error {
	o, err := s.repo.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("order not found for payment status update", "gatewayOrderId", gatewayOrderID)
			return nil
		}
		return err
	}
	if o.PaymentStatus == PaymentCompleted {
		return nil
	}
	if err := s.repo.MarkPaymentCompleted(ctx, o.ID.String(), paymentID, capturedAmount); err != nil {
		return err
	}
	s.publishConfirmed(ctx, o)
	return nil
}

// failOrder marks the order failed and releases its reservation exactly once.
func (s *service) failOrder(ctx context.Context, o *Order, paymentID, code, reason string) error {
	if err := s.repo.MarkPaymentFailed(ctx, o.ID.String(), paymentID, code, reason); err != nil {
		return err
	}
	released, err := s.stock.Release(ctx, o.ID.String(), itemsToLines(o.Items))
	if err != nil {
		return err
	}
	s.logger.Info("order marked failed",
		"orderId", o.ID.String(), "gatewayOrderId", o.GatewayOrderID,
		"failureCode", code, "stockReleased", released)
	return nil
}

// orderNotFound answers a webhook for an unknown order: warn, dead-letter,
// and accept. The gateway must not retry-storm over what is usually a benign
// race with the order write.
func (s *service) orderNotFound(ctx context.Context, evt *payment.WebhookEvent, gatewayOrderID string, err error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	s.logger.Warn("order not found for webhook event",
		"event", evt.RawType, "gatewayOrderId", gatewayOrderID)
	if dlErr := s.repo.RecordDeadLetter(ctx, &DeadLetter{
		ID:             uuid.New(),
		EventType:      evt.RawType,
		GatewayOrderID: gatewayOrderID,
		Payload:        json.RawMessage(evt.RawBody),
	}); dlErr != nil {
		s.logger.Error("failed to record webhook dead letter", "error", dlErr)
	}
	return nil
}

func (s *service) publishConfirmed(ctx context.Context, o *Order) {
	err := s.publisher.PublishOrderConfirmed(ctx, fulfillment.OrderConfirmedEvent{
		OrderID:        o.ID.String(),
		GatewayOrderID: o.GatewayOrderID,
		BuyerID:        o.BuyerID,
		Total:          o.Total,
		ItemCount:      len(o.Items),
		ConfirmedAt:    time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to publish fulfillment event", "orderId", o.ID.String(), "error", err)
	}
}

func toLines(items []ItemRequest) []inventory.Line {
	lines := make([]inventory.Line, len(items))
	for i, item := range items {
		lines[i] = inventory.Line{ProductID: item.ID, Quantity: item.Quantity}
	}
	return lines
}

func itemsToLines(items []*LineItem) []inventory.Line {
	lines := make([]inventory.Line, len(items))
	for i, item := range items {
		lines[i] = inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return lines
}

// generateReceipt creates a unique receipt reference for the gateway order.
func generateReceipt() string {
	return fmt.Sprintf("receipt_%d_%s", time.Now().UnixMilli(), uuid.New().String()[:7])
}
