package validation

// Item is a cart line the client may send so the server can check the amount.
type Item struct {
	ID       string  `json:"id" validate:"required"`
	Quantity int     `json:"quantity" validate:"required,min=1"`
	Price    float64 `json:"price" validate:"required,gt=0"` // unit price, tax inclusive
}

// CreateOrderRequest is the payload for POST /api/create-order. Amount is in
// rupees; the handler converts it to paise.
type CreateOrderRequest struct {
	Amount   float64           `json:"amount" validate:"required,gt=0"`
	Currency string            `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Receipt  string            `json:"receipt,omitempty" validate:"omitempty,max=40"` // gateway receipt limit
	Notes    map[string]string `json:"notes,omitempty" validate:"omitempty,max=15"`
	Items    []Item            `json:"items,omitempty" validate:"omitempty,dive"`
}

// VerifyPaymentRequest is the payload for POST /api/verify-payment, as returned
// by the checkout widget.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}
