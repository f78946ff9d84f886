package payment

import (
	"errors"
	"fmt"
)

// GatewayOrder is the payment provider's remote representation of a checkout.
// Amount is in minor units (paise) — the only place money leaves major units.
type GatewayOrder struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes,omitempty"`
	CreatedAt int64             `json:"created_at"`
}

// CreateOrderRequest is the input to Gateway.CreateOrder. Notes must carry
// enough context to audit the remote order independent of local storage.
type CreateOrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// GatewayError wraps transport or provider failures. Safe to retry by the
// client: no local state is mutated before order creation succeeds.
type GatewayError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("payment gateway: %s (status %d)", e.Message, e.StatusCode)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ErrSignatureInvalid is returned when a payment or webhook signature does
// not match. Treated as a security event by callers.
var ErrSignatureInvalid = errors.New("signature verification failed")
