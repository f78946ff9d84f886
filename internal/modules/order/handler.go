package order

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/madhubanicraft/commerce-backend/internal/modules/auth"
	"github.com/madhubanicraft/commerce-backend/internal/modules/catalog"
	"github.com/madhubanicraft/commerce-backend/internal/modules/inventory"
	"github.com/madhubanicraft/commerce-backend/internal/modules/payment"
)

// Handler exposes the checkout and reconciliation HTTP endpoints. The three
// core routes keep the paths the storefront client already calls.
type Handler struct {
	service    Service
	production bool
}

func NewHandler(service Service, production bool) *Handler {
	return &Handler{service: service, production: production}
}

func (h *Handler) RegisterRoutes(r *chi.Mux, buyer, admin func(http.Handler) http.Handler) {
	r.Post("/create-order", h.createOrder)
	r.Post("/verify-payment", h.verifyPayment)
	r.Post("/razorpay-webhook", h.webhook)

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(buyer)
			r.Get("/mine", h.listMyOrders)
			r.Get("/{id}", h.getOrder)
		})
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Patch("/{id}/status", h.updateStatus)
			r.Delete("/{id}", h.cancelOrder)
		})
	})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	response, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeCreateOrderError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(response)
}

// writeCreateOrderError maps the error taxonomy to structured responses:
// business-rule failures become 4xx with enough detail for the client to
// self-correct, infrastructure failures become 5xx.
func (h *Handler) writeCreateOrderError(w http.ResponseWriter, err error) {
	var validation ValidationError
	var notFound *catalog.ProductsNotFoundError
	var conflict *inventory.StockConflictError
	var mismatch *AmountMismatchError
	var gateway *payment.GatewayError

	switch {
	case errors.As(err, &validation):
		respond(w, http.StatusBadRequest, map[string]string{"error": validation.Error()})
	case errors.As(err, &notFound):
		respond(w, http.StatusBadRequest, map[string]interface{}{
			"error":           "products not found",
			"missingProducts": notFound.IDs,
		})
	case errors.As(err, &conflict):
		respond(w, http.StatusBadRequest, map[string]interface{}{
			"error":       "Insufficient stock",
			"stockIssues": conflict.Issues,
		})
	case errors.As(err, &mismatch):
		respond(w, http.StatusBadRequest, map[string]interface{}{
			"error":           "Amount validation failed. Please refresh and try again.",
			"calculatedTotal": mismatch.Calculated,
		})
	case errors.As(err, &gateway):
		h.respondInternal(w, "Failed to create order", err)
	default:
		h.respondInternal(w, "Failed to create order", err)
	}
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	err := h.service.VerifyPayment(r.Context(), req)
	switch {
	case err == nil:
		respond(w, http.StatusOK, map[string]interface{}{
			"verified":  true,
			"orderId":   req.OrderID,
			"paymentId": req.PaymentID,
		})
	case errors.Is(err, payment.ErrSignatureInvalid):
		respond(w, http.StatusBadRequest, map[string]interface{}{
			"verified": false,
			"error":    "Payment verification failed",
		})
	default:
		var validation ValidationError
		if errors.As(err, &validation) {
			respond(w, http.StatusBadRequest, map[string]string{"error": validation.Error()})
			return
		}
		h.respondInternal(w, "Failed to verify payment", err)
	}
}

// webhook captures the raw body before any decoding: the signature is
// computed over the exact bytes received on the wire.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "unable to read body"})
		return
	}

	err = h.service.HandleWebhook(r.Context(), rawBody, r.Header.Get("x-razorpay-signature"))
	switch {
	case err == nil:
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, payment.ErrSignatureInvalid):
		respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid webhook signature"})
	default:
		h.respondInternal(w, "Webhook processing failed", err)
	}
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	buyerID := auth.BuyerID(r.Context())
	orders, err := h.service.ListBuyerOrders(r.Context(), buyerID)
	if err != nil {
		h.respondInternal(w, "Failed to list orders", err)
		return
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil || o.BuyerID != auth.BuyerID(r.Context()) {
		respond(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		code := http.StatusInternalServerError
		msg := err.Error()
		switch {
		case strings.Contains(msg, "cannot transition"), strings.Contains(msg, "only pending"):
			code = http.StatusUnprocessableEntity
		case strings.Contains(msg, "not found"):
			code = http.StatusNotFound
		}
		respond(w, code, map[string]string{"error": msg})
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		code := http.StatusInternalServerError
		msg := err.Error()
		switch {
		case strings.Contains(msg, "only pending"):
			code = http.StatusUnprocessableEntity
		case strings.Contains(msg, "not found"):
			code = http.StatusNotFound
		}
		respond(w, code, map[string]string{"error": msg})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "order cancelled"})
}

// respondInternal writes a 500, attaching error details only outside
// production.
func (h *Handler) respondInternal(w http.ResponseWriter, msg string, err error) {
	body := map[string]string{"error": msg}
	if !h.production {
		body["details"] = err.Error()
	}
	respond(w, http.StatusInternalServerError, body)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
