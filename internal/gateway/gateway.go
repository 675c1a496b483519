// Package gateway wraps the hosted payment gateway: server side order creation
// and verification of the signature returned by the checkout widget.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// DefaultCurrency is used when a create-order request omits the currency.
const DefaultCurrency = "INR"

// OrderRequest is an amount-locked order to create with the gateway.
type OrderRequest struct {
	AmountMinor int64 // paise
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Order is the gateway's view of a created order.
type Order struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity,omitempty"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt,omitempty"`
	Status    string            `json:"status,omitempty"`
	Notes     map[string]string `json:"notes,omitempty"`
	CreatedAt int64             `json:"created_at,omitempty"`
}

// Client creates orders with the gateway using the server-held secret.
type Client interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// KeyID is the public key identifier the widget needs.
	KeyID() string
}

// ErrNotConfigured is returned when gateway credentials are missing.
var ErrNotConfigured = errors.New("payment gateway credentials not configured")

// Signature is hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the expected digest for orderID and paymentID.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Signature(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
