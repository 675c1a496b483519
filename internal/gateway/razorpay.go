package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// orderCreator is the part of the razorpay SDK order resource used here.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay is a Client backed by the razorpay-go SDK.
type Razorpay struct {
	keyID  string
	orders orderCreator
}

// NewRazorpay builds a client from the key id and secret.
func NewRazorpay(keyID, keySecret string) (*Razorpay, error) {
	if keyID == "" || keySecret == "" {
		return nil, ErrNotConfigured
	}
	client := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{keyID: keyID, orders: client.Order}, nil
}

// KeyID returns the public key id.
func (r *Razorpay) KeyID() string {
	return r.keyID
}

// CreateOrder creates an auto-captured order. The SDK call is not context aware;
// ctx is checked before the request is made.
func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	currency := req.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	data := map[string]interface{}{
		"amount":          req.AmountMinor,
		"currency":        currency,
		"receipt":         req.Receipt,
		"payment_capture": 1,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	body, err := r.orders.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return decodeOrder(body)
}

// decodeOrder converts the SDK's generic map into an Order.
func decodeOrder(body map[string]interface{}) (*Order, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode gateway order: %w", err)
	}
	var wire struct {
		ID        string          `json:"id"`
		Entity    string          `json:"entity"`
		Amount    json.Number     `json:"amount"`
		Currency  string          `json:"currency"`
		Receipt   string          `json:"receipt"`
		Status    string          `json:"status"`
		Notes     json.RawMessage `json:"notes"`
		CreatedAt json.Number     `json:"created_at"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode gateway order: %w", err)
	}
	if wire.ID == "" {
		return nil, fmt.Errorf("decode gateway order: missing id")
	}
	amount, err := wire.Amount.Int64()
	if err != nil || amount <= 0 {
		return nil, fmt.Errorf("decode gateway order %s: invalid amount %q", wire.ID, wire.Amount)
	}
	created, _ := wire.CreatedAt.Int64()
	o := &Order{
		ID:        wire.ID,
		Entity:    wire.Entity,
		Amount:    amount,
		Currency:  wire.Currency,
		Receipt:   wire.Receipt,
		Status:    wire.Status,
		CreatedAt: created,
	}
	// the gateway returns notes as [] when empty and as an object otherwise
	var notes map[string]string
	if len(wire.Notes) > 0 && json.Unmarshal(wire.Notes, &notes) == nil {
		o.Notes = notes
	}
	return o, nil
}
