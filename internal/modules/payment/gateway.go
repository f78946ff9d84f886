package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Gateway is the opaque boundary to the payment provider. Implementations
// must not mutate any local state.
type Gateway interface {
	// CreateOrder creates a remote payment order and returns the provider's
	// order object. Fails with *GatewayError on transport or auth errors.
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*GatewayOrder, error)

	// VerifyPaymentSignature recomputes the HMAC over orderID + "|" +
	// paymentID with the key secret and compares it to the client-asserted
	// signature. Exact match only.
	VerifyPaymentSignature(orderID, paymentID, signature string) bool

	// ExpectedPaymentSignature returns the signature the gateway would
	// accept, for security-event logging on verification failure.
	ExpectedPaymentSignature(orderID, paymentID string) string

	// VerifyWebhookSignature recomputes the HMAC over the raw, unparsed
	// request body with the webhook secret. The body must be the exact
	// bytes received on the wire, captured before any deserialization.
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

type razorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

// NewRazorpayGateway builds the Razorpay adapter. baseURL is overridable for
// tests; production uses https://api.razorpay.com.
func NewRazorpayGateway(keyID, keySecret, webhookSecret, baseURL string) Gateway {
	return &razorpayGateway{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*GatewayOrder, error) {
	if g.keyID == "" || g.keySecret == "" {
		return nil, &GatewayError{Message: "gateway credentials not configured"}
	}

	body, err := json.Marshal(map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    req.Notes,
	})
	if err != nil {
		return nil, &GatewayError{Message: "encode order request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, &GatewayError{Message: "build order request", Err: err}
	}
	httpReq.SetBasicAuth(g.keyID, g.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Message: "gateway unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Message: "read gateway response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("order creation rejected: %s", truncate(respBody, 256)),
		}
	}

	var order GatewayOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, &GatewayError{Message: "decode gateway order", Err: err}
	}
	return &order, nil
}

func (g *razorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	expected := g.ExpectedPaymentSignature(orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (g *razorpayGateway) ExpectedPaymentSignature(orderID, paymentID string) string {
	return hmacHex([]byte(g.keySecret), []byte(orderID+"|"+paymentID))
}

func (g *razorpayGateway) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if g.webhookSecret == "" {
		return false
	}
	expected := hmacHex([]byte(g.webhookSecret), rawBody)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func hmacHex(key, data []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
