// Package gatewaytest provides an in-memory payment gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/imrishuroy/go-template-storefront/internal/gateway"
)

// Fake records CreateOrder calls and hands out sequential order ids.
type Fake struct {
	mu       sync.Mutex
	Key      string
	Secret   string
	Err      error
	Requests []gateway.OrderRequest
}

// New returns a Fake with test credentials.
func New() *Fake {
	return &Fake{Key: "rzp_test_key", Secret: "test_secret"}
}

func (f *Fake) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return nil, f.Err
	}
	return &gateway.Order{
		ID:       fmt.Sprintf("order_test%d", len(f.Requests)),
		Entity:   "order",
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    req.Notes,
	}, nil
}

func (f *Fake) KeyID() string { return f.Key }

// Calls is the number of CreateOrder calls so far.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

// Sign returns the signature the gateway would attach to a completed payment.
func (f *Fake) Sign(orderID, paymentID string) string {
	return gateway.Signature(f.Secret, orderID, paymentID)
}
