// Package checkout drives one checkout attempt from cart to confirmation for
// the card and manual payment paths.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-template-storefront/internal/cart"
	"github.com/imrishuroy/go-template-storefront/internal/gateway"
	"github.com/imrishuroy/go-template-storefront/internal/logging"
	"github.com/imrishuroy/go-template-storefront/internal/notify"
	"github.com/imrishuroy/go-template-storefront/internal/orders"
	"github.com/imrishuroy/go-template-storefront/internal/pricing"
)

// ConfirmationPath is the view the user lands on after placing an order.
const ConfirmationPath = "/order-confirmation"

var (
	// ErrCheckoutInProgress is returned when another attempt has not resolved yet.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMissingCustomer    = errors.New("name and a valid email are required")
	ErrUnknownMethod      = errors.New("unknown payment method")
	ErrPaymentDeclined    = errors.New("payment failed")
	ErrUnexpected         = errors.New("unexpected checkout error")
)

// Intake is the server side of checkout: it creates amount-locked gateway
// orders and verifies the widget's signature.
type Intake interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*CreatedOrder, error)
	VerifyPayment(ctx context.Context, v Verification) error
}

// CreateOrderInput is the create-order request. Amount is in rupees.
type CreateOrderInput struct {
	Amount   float64
	Currency string
	Receipt  string
	Notes    map[string]string
	Items    []LineItem
}

// LineItem lets the server check the amount against the cart.
type LineItem struct {
	ID       string  `json:"id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// CreatedOrder is the gateway order plus the public key the widget needs.
type CreatedOrder struct {
	Order gateway.Order `json:"order"`
	KeyID string        `json:"key_id"`
}

// Verification is the triple returned by a completed widget payment.
type Verification struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// WidgetOptions configure the hosted payment widget for one order.
type WidgetOptions struct {
	KeyID       string
	OrderID     string
	AmountMinor int64
	Currency    string
	Description string
	Prefill     orders.Customer
}

// Widget is the gateway's hosted checkout.
type Widget interface {
	// Load fetches the widget script. It is called at most until it succeeds once.
	Load(ctx context.Context) error
	// Open blocks until the customer pays, dismisses or the payment fails.
	Open(ctx context.Context, opts WidgetOptions) PaymentResult
}

// Request starts one checkout attempt.
type Request struct {
	Method   orders.PaymentMethod
	Customer orders.Customer
}

// Deps are the collaborators of an Orchestrator. Widget and Intake are only
// needed for card payments.
type Deps struct {
	Cart      *cart.Store
	Intake    Intake
	Widget    Widget
	Notifier  notify.Notifier
	Navigator Navigator
	Notices   Notices
	Logger    *zap.Logger
	Now       func() time.Time
}

// Orchestrator runs checkout attempts against one cart. At most one attempt
// runs at a time.
type Orchestrator struct {
	deps     Deps
	log      *zap.Logger
	validate *validatorv10.Validate
	inFlight atomic.Bool

	widgetMu     sync.Mutex
	widgetLoaded bool
}

// New returns an Orchestrator. Cart, Notifier, Navigator and Notices are required.
func New(deps Deps) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{
		deps:     deps,
		log:      logging.OrNop(deps.Logger),
		validate: validatorv10.New(),
	}
}

// Checkout runs one attempt to a terminal state. Placed orders, including
// those whose email failed, and cancellations return a nil error.
func (o *Orchestrator) Checkout(ctx context.Context, req Request) (out Outcome, err error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return Outcome{}, ErrCheckoutInProgress
	}
	defer o.inFlight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("checkout panicked", zap.Any("panic", r))
			o.notify(NoticeError, "Something went wrong", "Your payment was not completed. Please try again.")
			out, err = Outcome{Status: StatusPaymentFailed}, ErrUnexpected
		}
	}()

	if o.deps.Cart.IsEmpty() {
		o.notify(NoticeWarning, "Your cart is empty", "Add a template before checking out.")
		return Outcome{Status: StatusValidationFailed}, ErrEmptyCart
	}

	switch req.Method {
	case orders.PaymentManual:
		return o.manual(ctx, req.Customer)
	case orders.PaymentCard:
		return o.card(ctx, req.Customer)
	default:
		o.notify(NoticeWarning, "Choose a payment method", "Pay by card or bank transfer.")
		return Outcome{Status: StatusValidationFailed}, fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
	}
}

// InFlight reports whether an attempt is running, for disabling the pay control.
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

func (o *Orchestrator) manual(ctx context.Context, customer orders.Customer) (Outcome, error) {
	if err := o.validate.Struct(customer); err != nil {
		o.notify(NoticeWarning, "Missing details", "Please enter your name and a valid email address.")
		return Outcome{Status: StatusValidationFailed}, fmt.Errorf("%w: %v", ErrMissingCustomer, err)
	}

	orderID := pricing.GenerateOrderNumber()
	details := o.details(o.snapshot(), orderID, orders.ManualPaymentPrefix+orderID, orders.PaymentManual, "", customer)
	o.log.Info("manual order placed", zap.String("order_id", orderID), zap.Float64("total", details.Total))
	return o.finish(ctx, details), nil
}

func (o *Orchestrator) card(ctx context.Context, customer orders.Customer) (Outcome, error) {
	if o.deps.Intake == nil || o.deps.Widget == nil {
		o.notify(NoticeError, "Card payments unavailable", "Please choose bank transfer or try again later.")
		return Outcome{Status: StatusPaymentFailed}, fmt.Errorf("card checkout: %w", gateway.ErrNotConfigured)
	}
	if customer != (orders.Customer{}) {
		if err := o.validate.Struct(customer); err != nil {
			o.notify(NoticeWarning, "Check your details", "Please enter your name and a valid email address.")
			return Outcome{Status: StatusValidationFailed}, fmt.Errorf("%w: %v", ErrMissingCustomer, err)
		}
	}
	if err := o.loadWidget(ctx); err != nil {
		o.log.Error("payment widget failed to load", zap.Error(err))
		o.notify(NoticeError, "Payment unavailable", "The payment window could not be loaded. Please try again.")
		return Outcome{Status: StatusPaymentFailed}, fmt.Errorf("load widget: %w", err)
	}

	snap := o.snapshot()
	receipt := pricing.GenerateOrderNumber()
	log := o.log.With(zap.String("receipt", receipt))

	items := make([]LineItem, 0, len(snap.items))
	for _, l := range snap.items {
		items = append(items, LineItem{ID: l.ID, Quantity: l.Quantity, Price: l.Price})
	}
	created, err := o.deps.Intake.CreateOrder(ctx, CreateOrderInput{
		Amount:   snap.totals.Total,
		Currency: gateway.DefaultCurrency,
		Receipt:  receipt,
		Notes: map[string]string{
			"customer_name":  customer.Name,
			"customer_email": customer.Email,
			"item_count":     strconv.Itoa(snap.count),
		},
		Items: items,
	})
	if err != nil {
		log.Error("create order failed", zap.Error(err))
		o.notify(NoticeError, "Could not start payment", err.Error())
		return Outcome{Status: StatusPaymentFailed}, fmt.Errorf("create order: %w", err)
	}

	result := o.deps.Widget.Open(ctx, WidgetOptions{
		KeyID:       created.KeyID,
		OrderID:     created.Order.ID,
		AmountMinor: created.Order.Amount,
		Currency:    created.Order.Currency,
		Description: fmt.Sprintf("Order %s", receipt),
		Prefill:     customer,
	})

	switch r := result.(type) {
	case PaymentDismissed:
		log.Info("checkout closed", zap.String("gateway_order_id", created.Order.ID))
		o.notify(NoticeInfo, "Checkout closed", "No payment was taken. Your cart is still here.")
		return Outcome{Status: StatusCancelled}, nil
	case PaymentFailed:
		log.Warn("payment failed", zap.String("reason", r.Reason))
		o.notify(NoticeError, "Payment failed", r.Reason)
		return Outcome{Status: StatusPaymentFailed}, fmt.Errorf("%w: %s", ErrPaymentDeclined, r.Reason)
	case PaymentCompleted:
		if err := o.deps.Intake.VerifyPayment(ctx, Verification(r)); err != nil {
			log.Error("payment verification failed", zap.String("payment_id", r.PaymentID), zap.Error(err))
			o.notify(NoticeError, "Payment verification failed", "We could not confirm your payment. Contact support if you were charged.")
			return Outcome{Status: StatusPaymentFailed}, fmt.Errorf("verify payment: %w", err)
		}
		details := o.details(snap, receipt, r.PaymentID, orders.PaymentCard, r.OrderID, customer)
		log.Info("card order placed", zap.String("payment_id", r.PaymentID))
		return o.finish(ctx, details), nil
	default:
		log.Error("unknown widget result", zap.String("type", fmt.Sprintf("%T", result)))
		o.notify(NoticeError, "Payment failed", "The payment window returned an unexpected result.")
		return Outcome{Status: StatusPaymentFailed}, fmt.Errorf("%w: widget result %T", ErrPaymentDeclined, result)
	}
}

// loadWidget caches a successful load; a failed load is retried next attempt.
func (o *Orchestrator) loadWidget(ctx context.Context) error {
	o.widgetMu.Lock()
	defer o.widgetMu.Unlock()
	if o.widgetLoaded {
		return nil
	}
	if err := o.deps.Widget.Load(ctx); err != nil {
		return err
	}
	o.widgetLoaded = true
	return nil
}

// cartSnapshot fixes the lines and totals an attempt charges for, so cart
// changes while the widget is open do not reach the placed order.
type cartSnapshot struct {
	items  []orders.Item
	totals pricing.Totals
	count  int
}

func (o *Orchestrator) snapshot() cartSnapshot {
	lines := o.deps.Cart.Items()
	snap := cartSnapshot{items: orders.ItemsFromCart(lines)}
	var subtotal float64
	for _, it := range snap.items {
		subtotal += it.LineTotal()
		snap.count += it.Quantity
	}
	snap.totals = pricing.Breakdown(subtotal)
	return snap
}

func (o *Orchestrator) details(snap cartSnapshot, orderID, paymentID string, method orders.PaymentMethod, gatewayOrderID string, customer orders.Customer) orders.Details {
	return orders.Details{
		OrderID:        orderID,
		InvoiceID:      pricing.GenerateInvoiceID(),
		OrderDate:      o.deps.Now(),
		Items:          snap.items,
		Subtotal:       snap.totals.Subtotal,
		Shipping:       snap.totals.Shipping,
		Total:          snap.totals.Total,
		PaymentID:      paymentID,
		PaymentMethod:  method,
		GatewayOrderID: gatewayOrderID,
		Customer:       customer,
	}
}

// finish sends the confirmation, clears the cart and navigates. An email
// failure does not undo the order.
func (o *Orchestrator) finish(ctx context.Context, details orders.Details) Outcome {
	sent := o.deps.Notifier.SendOrderConfirmationEmail(ctx, details)
	o.deps.Cart.Clear()

	confirmation := ConfirmationURL(details)
	o.deps.Navigator.Navigate(confirmation)

	out := Outcome{Status: StatusSucceeded, Order: &details, ConfirmationURL: confirmation}
	switch {
	case !sent:
		out.Status = StatusSucceededEmailFailed
		o.log.Warn("order placed but confirmation email failed", zap.String("order_id", details.OrderID))
		o.notify(NoticeWarning, "Order placed, email not sent",
			fmt.Sprintf("Your order %s went through but we could not email the invoice. Please contact support.", details.OrderID))
	case details.IsManual():
		o.notify(NoticeSuccess, "Order received",
			fmt.Sprintf("Transfer %s quoting %s. Instructions were sent to %s.", pricing.FormatINR(details.Total), details.OrderID, details.Customer.Email))
	default:
		o.notify(NoticeSuccess, "Payment successful",
			fmt.Sprintf("Order %s is confirmed. Your invoice is on its way.", details.OrderID))
	}
	return out
}

func (o *Orchestrator) notify(level NoticeLevel, title, message string) {
	if o.deps.Notices == nil {
		return
	}
	o.deps.Notices.Notify(Notice{Level: level, Title: title, Message: message})
}

// ConfirmationURL is the confirmation view for a placed order. Manual orders
// carry paymentMethod=manual instead of a payment id.
func ConfirmationURL(d orders.Details) string {
	q := url.Values{}
	q.Set("orderId", d.OrderID)
	if d.IsManual() {
		q.Set("paymentMethod", string(orders.PaymentManual))
	} else {
		q.Set("paymentId", d.PaymentID)
	}
	q.Set("total", strconv.FormatFloat(d.Total, 'f', 2, 64))
	q.Set("email", d.Customer.Email)
	q.Set("name", d.Customer.Name)
	return ConfirmationPath + "?" + q.Encode()
}
