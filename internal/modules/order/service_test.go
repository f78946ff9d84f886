package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhubanicraft/commerce-backend/internal/modules/catalog"
	"github.com/madhubanicraft/commerce-backend/internal/modules/fulfillment"
	"github.com/madhubanicraft/commerce-backend/internal/modules/idempotency"
	"github.com/madhubanicraft/commerce-backend/internal/modules/inventory"
	"github.com/madhubanicraft/commerce-backend/internal/modules/payment"
)

// ── fakes ─────────────────────────────────────────────────────────────────────

type fakeRepo struct {
	orders          map[string]*Order // keyed by order id
	byGateway       map[string]*Order // keyed by gateway order id
	createCalls     int
	completedCalls  int
	captureRefresh  int
	failedCalls     int
	deadLetters     []*DeadLetter
	lastFailureCode string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[string]*Order{}, byGateway: map[string]*Order{}}
}

func (r *fakeRepo) add(o *Order) {
	r.orders[o.ID.String()] = o
	if o.GatewayOrderID != "" {
		r.byGateway[o.GatewayOrderID] = o
	}
}

func (r *fakeRepo) Create(ctx context.Context, o *Order) error {
	r.createCalls++
	r.add(o)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return o, nil
}

func (r *fakeRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error) {
	o, ok := r.byGateway[gatewayOrderID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return o, nil
}

func (r *fakeRepo) ListByBuyer(ctx context.Context, buyerID string) ([]*Order, error) {
	var out []*Order
	for _, o := range r.orders {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeRepo) MarkPaymentCompleted(ctx context.Context, id string, paymentID string, capturedAmount *float64) error {
	r.completedCalls++
	o := r.orders[id]
	o.PaymentStatus = PaymentCompleted
	o.Status = StatusProcessing
	if paymentID != "" {
		o.GatewayPaymentID = paymentID
	}
	o.CapturedAmount = capturedAmount
	return nil
}

func (r *fakeRepo) UpdateCaptureMetadata(ctx context.Context, id string, paymentID string, capturedAmount float64) error {
	r.captureRefresh++
	o := r.orders[id]
	if paymentID != "" {
		o.GatewayPaymentID = paymentID
	}
	o.CapturedAmount = &capturedAmount
	return nil
}

func (r *fakeRepo) MarkPaymentFailed(ctx context.Context, id string, paymentID, failureCode, failureReason string) error {
	r.failedCalls++
	r.lastFailureCode = failureCode
	o := r.orders[id]
	o.PaymentStatus = PaymentFailed
	o.Status = StatusFailed
	o.FailureCode = failureCode
	o.FailureReason = failureReason
	return nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id string, status Status) error {
	r.orders[id].Status = status
	return nil
}

func (r *fakeRepo) RecordDeadLetter(ctx context.Context, d *DeadLetter) error {
	r.deadLetters = append(r.deadLetters, d)
	return nil
}

type fakeCatalog struct {
	prices map[string]catalog.PriceInfo
}

func (c *fakeCatalog) FetchPrices(ctx context.Context, ids []string) (map[string]catalog.PriceInfo, error) {
	out := map[string]catalog.PriceInfo{}
	var missing []string
	for _, id := range ids {
		p, ok := c.prices[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out[id] = p
	}
	if len(missing) > 0 {
		return nil, &catalog.ProductsNotFoundError{IDs: missing}
	}
	return out, nil
}

func (c *fakeCatalog) CreateProduct(context.Context, catalog.UpsertProductRequest) (*catalog.Product, error) {
	panic("not used")
}
func (c *fakeCatalog) GetProduct(context.Context, string) (*catalog.Product, error) {
	panic("not used")
}
func (c *fakeCatalog) ListProducts(context.Context, string, bool) ([]*catalog.Product, error) {
	panic("not used")
}
func (c *fakeCatalog) UpdateProduct(context.Context, string, catalog.UpsertProductRequest) (*catalog.Product, error) {
	panic("not used")
}

type fakeStock struct {
	reserveCalls  int
	reserveErr    error
	released      map[string]bool // order ids whose reservation was already released
	releaseCredit int             // times stock was actually credited back
}

func newFakeStock() *fakeStock { return &fakeStock{released: map[string]bool{}} }

func (s *fakeStock) Reserve(ctx context.Context, orderRef string, lines []inventory.Line) error {
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.reserveCalls++
	return nil
}

func (s *fakeStock) Release(ctx context.Context, orderID string, lines []inventory.Line) (bool, error) {
	if s.released[orderID] {
		return false, nil
	}
	s.released[orderID] = true
	s.releaseCredit++
	return true, nil
}

type fakeIdemStore struct {
	entries   map[string]json.RawMessage
	saveCalls int
	lookupErr error
}

func newFakeIdemStore() *fakeIdemStore { return &fakeIdemStore{entries: map[string]json.RawMessage{}} }

func (s *fakeIdemStore) Lookup(ctx context.Context, hash string) (json.RawMessage, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.entries[hash], nil
}

func (s *fakeIdemStore) Save(ctx context.Context, hash string, response json.RawMessage) error {
	s.saveCalls++
	s.entries[hash] = response
	return nil
}

type fakeGateway struct {
	createCalls int
	createErr   error
	nextOrderID string
	acceptSig   bool
	acceptHook  bool
	lastRequest *payment.CreateOrderRequest
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req *payment.CreateOrderRequest) (*payment.GatewayOrder, error) {
	g.createCalls++
	g.lastRequest = req
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &payment.GatewayOrder{
		ID:       g.nextOrderID,
		Entity:   "order",
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    req.Notes,
	}, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return g.acceptSig
}

func (g *fakeGateway) ExpectedPaymentSignature(orderID, paymentID string) string {
	return "expected-signature"
}

func (g *fakeGateway) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return g.acceptHook
}

type fakePublisher struct {
	events []fulfillment.OrderConfirmedEvent
}

func (p *fakePublisher) PublishOrderConfirmed(ctx context.Context, evt fulfillment.OrderConfirmedEvent) error {
	p.events = append(p.events, evt)
	return nil
}

// ── harness ───────────────────────────────────────────────────────────────────

type fixture struct {
	svc       Service
	repo      *fakeRepo
	stock     *fakeStock
	idem      *fakeIdemStore
	gateway   *fakeGateway
	publisher *fakePublisher
}

func newFixture() *fixture {
	f := &fixture{
		repo:      newFakeRepo(),
		stock:     newFakeStock(),
		idem:      newFakeIdemStore(),
		gateway:   &fakeGateway{nextOrderID: "order_rzp_123", acceptSig: true, acceptHook: true},
		publisher: &fakePublisher{},
	}
	cat := &fakeCatalog{prices: map[string]catalog.PriceInfo{
		"p1": {Price: 50.00, Stock: 10, Name: "Peacock Painting"},
		"p2": {Price: 20.00, Stock: 3, Name: "Fish Motif"},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(f.repo, cat, f.stock, f.idem,
		idempotency.NewFingerprinter("test-secret"), f.gateway, f.publisher, logger)
	return f
}

func validRequest() CreateOrderRequest {
	return CreateOrderRequest{
		Amount:           110.00, // 2×50 subtotal + 10 tax, free shipping
		Items:            []ItemRequest{{ID: "p1", Quantity: 2}},
		UserID:           "buyer-1",
		UserEmail:        "buyer@example.com",
		RequestTimestamp: 1700000000000,
	}
}

func seedOrder(f *fixture, gatewayOrderID string, ps PaymentStatus, status Status) *Order {
	o := &Order{
		ID:             uuid.New(),
		GatewayOrderID: gatewayOrderID,
		BuyerID:        "buyer-1",
		Subtotal:       100, Tax: 10, Shipping: 0, Total: 110,
		Status:        status,
		PaymentStatus: ps,
		StockReserved: true,
		Items: []*LineItem{
			{ID: uuid.New(), ProductID: "p1", Quantity: 2, UnitPrice: 50, Name: "Peacock Painting"},
		},
	}
	f.repo.add(o)
	return o
}

func capturedBody(orderID, paymentID string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":%d,"status":"captured"}}}}`,
		paymentID, orderID, amount))
}

func failedBody(orderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":11000,"status":"failed","error_code":"BAD_REQUEST_ERROR","error_description":"Payment declined"}}}}`,
		paymentID, orderID))
}

// ── CreateOrder ───────────────────────────────────────────────────────────────

func TestCreateOrder(t *testing.T) {
	f := newFixture()

	raw, err := f.svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)

	var resp CreateOrderResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, "order_rzp_123", resp.ID)
	assert.Equal(t, int64(11000), resp.Amount)
	assert.Equal(t, "INR", resp.Currency)
	assert.Equal(t, Totals{Subtotal: 100, Tax: 10, Shipping: 0, Total: 110}, resp.CalculatedTotals)
	assert.NotEmpty(t, resp.OrderID)

	require.Equal(t, 1, f.repo.createCalls)
	o := f.repo.byGateway["order_rzp_123"]
	require.NotNil(t, o)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.True(t, o.StockReserved)
	assert.Equal(t, "buyer-1", o.BuyerID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 50.00, o.Items[0].UnitPrice)
	assert.Equal(t, "Peacock Painting", o.Items[0].Name)

	assert.Equal(t, 1, f.stock.reserveCalls)
	assert.Equal(t, 1, f.idem.saveCalls)
	assert.Equal(t, "buyer-1", f.gateway.lastRequest.Notes["userId"])
	assert.Equal(t, "110.00", f.gateway.lastRequest.Notes["calculatedTotal"])
}

func TestCreateOrderDefaultsGuestEmail(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.UserEmail = ""

	_, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "guest@example.com", f.repo.byGateway["order_rzp_123"].BuyerEmail)
	assert.Equal(t, "guest@example.com", f.gateway.lastRequest.Notes["userEmail"])
}

func TestCreateOrderIdempotentReplay(t *testing.T) {
	f := newFixture()
	req := validRequest()

	first, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	// Byte-identical replay; no second gateway order, reservation, or row.
	assert.Equal(t, []byte(first), []byte(second))
	assert.Equal(t, 1, f.gateway.createCalls)
	assert.Equal(t, 1, f.stock.reserveCalls)
	assert.Equal(t, 1, f.repo.createCalls)
}

func TestCreateOrderDifferentTimestampIsNewOrder(t *testing.T) {
	f := newFixture()
	req := validRequest()

	_, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	req.RequestTimestamp++
	_, err = f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, f.gateway.createCalls)
}

func TestCreateOrderLookupFailureFallsThrough(t *testing.T) {
	f := newFixture()
	f.idem.lookupErr = errors.New("store down")

	_, err := f.svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateway.createCalls)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture()

	for _, req := range []CreateOrderRequest{
		{Amount: 0, Items: []ItemRequest{{ID: "p1", Quantity: 1}}, UserID: "buyer-1"},
		{Amount: 110, Items: nil, UserID: "buyer-1"},
		{Amount: 110, Items: []ItemRequest{{ID: "p1", Quantity: 1}}, UserID: ""},
	} {
		_, err := f.svc.CreateOrder(context.Background(), req)
		var validation ValidationError
		require.ErrorAs(t, err, &validation)
	}
	assert.Zero(t, f.gateway.createCalls)
}

func TestCreateOrderBadItemQuantity(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.Items = []ItemRequest{{ID: "p1", Quantity: -1}}

	_, err := f.svc.CreateOrder(context.Background(), req)
	var validation ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Zero(t, f.gateway.createCalls)
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.Items = append(req.Items, ItemRequest{ID: "ghost", Quantity: 1})

	_, err := f.svc.CreateOrder(context.Background(), req)
	var notFound *catalog.ProductsNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"ghost"}, notFound.IDs)
	assert.Zero(t, f.gateway.createCalls)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.Items = []ItemRequest{{ID: "p2", Quantity: 5}} // stock is 3
	req.Amount = 110

	_, err := f.svc.CreateOrder(context.Background(), req)
	var conflict *inventory.StockConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Issues, 1)
	assert.Equal(t, "p2", conflict.Issues[0].ProductID)
	assert.Equal(t, 5, conflict.Issues[0].Requested)
	assert.Equal(t, 3, conflict.Issues[0].Available)
	assert.Zero(t, f.gateway.createCalls)
	assert.Zero(t, f.stock.reserveCalls)
}

func TestCreateOrderAmountMismatch(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.Amount = 95.00 // tampered: server computes 110

	_, err := f.svc.CreateOrder(context.Background(), req)
	var mismatch *AmountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 110.00, mismatch.Calculated)
	assert.Zero(t, f.gateway.createCalls, "gateway must not be called for a tampered amount")
}

func TestCreateOrderGatewayFailureLeavesNoState(t *testing.T) {
	f := newFixture()
	f.gateway.createErr = &payment.GatewayError{StatusCode: 502, Message: "bad gateway"}

	_, err := f.svc.CreateOrder(context.Background(), validRequest())
	var gwErr *payment.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Zero(t, f.stock.reserveCalls, "no reservation may exist without a gateway order")
	assert.Zero(t, f.repo.createCalls)
	assert.Zero(t, f.idem.saveCalls)
}

func TestCreateOrderReserveRaceLost(t *testing.T) {
	f := newFixture()
	f.stock.reserveErr = &inventory.StockConflictError{
		Issues: []inventory.StockIssue{{ProductID: "p1", Requested: 2, Available: 1}},
	}

	_, err := f.svc.CreateOrder(context.Background(), validRequest())
	var conflict *inventory.StockConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Zero(t, f.repo.createCalls)
}

// ── VerifyPayment ─────────────────────────────────────────────────────────────

func TestVerifyPayment(t *testing.T) {
	f := newFixture()
	o := seedOrder(f, "order_rzp_123", PaymentPending, StatusPending)

	err := f.svc.VerifyPayment(context.Background(), VerifyPaymentRequest{
		OrderID: "order_rzp_123", PaymentID: "pay_1", Signature: "sig",
	})
	require.NoError(t, err)
	assert.Equal(t, PaymentCompleted, o.PaymentStatus)
	assert.Equal(t, StatusProcessing, o.Status)
	assert.Equal(t, "pay_1", o.GatewayPaymentID)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, o.ID.String(), f.publisher.events[0].OrderID)
}

func TestVerifyPaymentMissingFields(t *testing.T) {
	f := newFixture()
	err := f.svc.VerifyPayment(context.Background(), VerifyPaymentRequest{OrderID: "order_rzp_123"})
	var validation ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestVerifyPaymentForgedSignature(t *testing.T) {
	f := newFixture()
	f.gateway.acceptSig = false
	o := seedOrder(f, "order_rzp_123", PaymentPending, StatusPending)

	err := f.svc.VerifyPayment(context.Background(), VerifyPaymentRequest{
		OrderID: "order_rzp_123", PaymentID: "pay_1", Signature: "forged",
	})
	require.ErrorIs(t, err, payment.ErrSignatureInvalid)
	assert.Equal(t, PaymentFailed, o.PaymentStatus)
	assert.Equal(t, StatusFailed, o.Status)
	assert.Equal(t, "SIGNATURE_INVALID", o.FailureCode)
	assert.Equal(t, 1, f.stock.releaseCredit)
	assert.Empty(t, f.publisher.events)
}

func TestVerifyPaymentForgedSignatureUnknownOrder(t *testing.T) {
	f := newFixture()
	f.gateway.acceptSig = false

	err := f.svc.VerifyPayment(context.Background(), VerifyPaymentRequest{
		OrderID: "order_missing", PaymentID: "pay_1", Signature: "forged",
	})
	require.ErrorIs(t, err, payment.ErrSignatureInvalid)
	assert.Zero(t, f.repo.failedCalls)
}

func TestVerifyPaymentUnknownOrderStillSucceeds(t *testing.T) {
	f := newFixture()
	// Valid signature but no local order: verification reports success, the
	// status update is skipped.
	err := f.svc.VerifyPayment(context.Background(), VerifyPaymentRequest{
		OrderID: "order_missing", PaymentID: "pay_1", Signature: "sig",
	})
	require.NoError(t, err)
	assert.Zero(t, f.repo.completedCalls)
}

func TestVerifyPaymentAlreadyCompleted(t *testing.T) {
	f := newFixture()
	seedOrder(f, "order_rzp_123", PaymentCompleted, StatusProcessing)

	err := f.svc.VerifyPayment(context.Background(), VerifyPaymentRequest{
		OrderID: "order_rzp_123", PaymentID: "pay_1", Signature: "sig",
	})
	require.NoError(t, err)
	assert.Zero(t, f.repo.completedCalls)
	assert.Empty(t, f.publisher.events)
}

// ── HandleWebhook ─────────────────────────────────────────────────────────────

func TestWebhookInvalidSignature(t *testing.T) {
	f := newFixture()
	f.gateway.acceptHook = false

	err := f.svc.HandleWebhook(context.Background(), capturedBody("order_rzp_123", "pay_1", 11000), "bad")
	require.ErrorIs(t, err, payment.ErrSignatureInvalid)
}

func TestWebhookPaymentCaptured(t *testing.T) {
	f := newFixture()
	o := seedOrder(f, "order_rzp_123", PaymentPending, StatusPending)

	err := f.svc.HandleWebhook(context.Background(), capturedBody("order_rzp_123", "pay_1", 11000), "sig")
	require.NoError(t, err)
	assert.Equal(t, PaymentCompleted, o.PaymentStatus)
	assert.Equal(t, StatusProcessing, o.Status)
	require.NotNil(t, o.CapturedAmount)
	assert.Equal(t, 110.00, *o.CapturedAmount)
	require.Len(t, f.publisher.events, 1)
}

func TestWebhookCapturedReplayKeepsStatus(t *testing.T) {
	f := newFixture()
	o := seedOrder(f, "order_rzp_123", PaymentPending, StatusPending)

	body := capturedBody("order_rzp_123", "pay_1", 11000)
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, "sig"))

	// Admin advanced the order before the gateway redelivered the event.
	o.Status = StatusConfirmed

	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, "sig"))
	assert.Equal(t, StatusConfirmed, o.Status, "replay must not regress an advanced status")
	assert.Equal(t, 1, f.repo.completedCalls)
	assert.Equal(t, 1, f.repo.captureRefresh)
	assert.Len(t, f.publisher.events, 1, "replay must not re-publish fulfilment")
}

func TestWebhookPaymentFailed(t *testing.T) {
	f := newFixture()
	o := seedOrder(f, "order_rzp_123", PaymentPending, StatusPending)

	err := f.svc.HandleWebhook(context.Background(), failedBody("order_rzp_123", "pay_1"), "sig")
	require.NoError(t, err)
	assert.Equal(t, PaymentFailed, o.PaymentStatus)
	assert.Equal(t, StatusFailed, o.Status)
	assert.Equal(t, "BAD_REQUEST_ERROR", o.FailureCode)
	assert.Equal(t, "Payment declined", o.FailureReason)
	assert.Equal(t, 1, f.stock.releaseCredit)
}

func TestWebhookPaymentFailedReplayReleasesOnce(t *testing.T) {
	f := newFixture()
	seedOrder(f, "order_rzp_123", PaymentPending, StatusPending)

	body := failedBody("order_rzp_123", "pay_1")
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, "sig"))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, "sig"))

	assert.Equal(t, 1, f.stock.releaseCredit, "stock must be credited back at most once")
}

func TestWebhookOrderPaidBackstop(t *testing.T) {
	f := newFixture()
	o := seedOrder(f, "order_rzp_123", PaymentPending, StatusPending)

	body := []byte(`{"event":"order.paid","payload":{"order":{"entity":{"id":"order_rzp_123","amount":11000,"status":"paid"}}}}`)
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, "sig"))
	assert.Equal(t, PaymentCompleted, o.PaymentStatus)

	// Redelivery after completion is a no-op.
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, "sig"))
	assert.Equal(t, 1, f.repo.completedCalls)
	assert.Len(t, f.publisher.events, 1)
}

func TestWebhookUnknownEventIgnored(t *testing.T) {
	f := newFixture()
	body := []byte(`{"event":"refund.processed","payload":{}}`)
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, "sig"))
	assert.Zero(t, f.repo.completedCalls)
	assert.Zero(t, f.repo.failedCalls)
}

func TestWebhookUnknownOrderDeadLettered(t *testing.T) {
	f := newFixture()

	body := capturedBody("order_never_seen", "pay_1", 11000)
	err := f.svc.HandleWebhook(context.Background(), body, "sig")
	require.NoError(t, err, "unknown orders must be acknowledged, not retried")

	require.Len(t, f.repo.deadLetters, 1)
	dl := f.repo.deadLetters[0]
	assert.Equal(t, "payment.captured", dl.EventType)
	assert.Equal(t, "order_never_seen", dl.GatewayOrderID)
	assert.JSONEq(t, string(body), string(dl.Payload))
}

func TestWebhookMalformedBody(t *testing.T) {
	f := newFixture()
	err := f.svc.HandleWebhook(context.Background(), []byte("{not json"), "sig")
	require.Error(t, err)
}

// ── Admin lifecycle ───────────────────────────────────────────────────────────

func TestUpdateStatusProcessingToConfirmed(t *testing.T) {
	f := newFixture()
	o := seedOrder(f, "order_rzp_123", PaymentCompleted, StatusProcessing)

	updated, err := f.svc.UpdateStatus(context.Background(), o.ID.String(), UpdateStatusRequest{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	f := newFixture()
	o := seedOrder(f, "order_rzp_123", PaymentPending, StatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), o.ID.String(), UpdateStatusRequest{Status: "confirmed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot transition")
}

func TestCancelPendingOrderReleasesStock(t *testing.T) {
	f := newFixture()
	o := seedOrder(f, "order_rzp_123", PaymentPending, StatusPending)

	require.NoError(t, f.svc.CancelOrder(context.Background(), o.ID.String()))
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, 1, f.stock.releaseCredit)
}

func TestCancelNonPendingOrderRejected(t *testing.T) {
	f := newFixture()
	o := seedOrder(f, "order_rzp_123", PaymentCompleted, StatusProcessing)

	err := f.svc.CancelOrder(context.Background(), o.ID.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only pending")
	assert.Zero(t, f.stock.releaseCredit)
}
