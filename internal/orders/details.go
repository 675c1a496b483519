package orders

import (
	"time"

	"github.com/imrishuroy/go-template-storefront/internal/cart"
	"github.com/imrishuroy/go-template-storefront/internal/pricing"
)

// PaymentMethod selects the checkout path.
type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentManual PaymentMethod = "manual"
)

// ManualPaymentPrefix prefixes the synthetic payment id of a manual order.
const ManualPaymentPrefix = "MANUAL_"

// Customer is the contact the confirmation is sent to.
type Customer struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Item is a flattened copy of a cart line, decoupled from the cart.
type Item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Category    string  `json:"category"`
}

// LineTotal is price times quantity.
func (i Item) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Details is the immutable snapshot of a placed order. It is passed by value
// to the invoice generator and the notification service.
type Details struct {
	OrderID        string        `json:"order_id"`
	InvoiceID      string        `json:"invoice_id"`
	OrderDate      time.Time     `json:"order_date"`
	Items          []Item        `json:"items"`
	Subtotal       float64       `json:"subtotal"`
	Shipping       float64       `json:"shipping"`
	Total          float64       `json:"total"`
	PaymentID      string        `json:"payment_id"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	GatewayOrderID string        `json:"gateway_order_id,omitempty"`
	Customer       Customer      `json:"customer"`
}

// IsManual reports whether the order awaits an offline transfer.
func (d Details) IsManual() bool {
	return d.PaymentMethod == PaymentManual
}

// ItemsFromCart copies cart lines into order items.
func ItemsFromCart(lines []cart.Item) []Item {
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, Item{
			ID:          l.Product.ID,
			Name:        l.Product.Name,
			Description: l.Product.Description,
			Price:       l.Product.Price,
			Quantity:    l.Quantity,
			Category:    l.Product.Category,
		})
	}
	return items
}

// GST is the tax contained in the order subtotal. Both the invoice and the
// confirmation email read tax from here.
func (d Details) GST() pricing.GST {
	return pricing.CalculateGST(d.Subtotal)
}
