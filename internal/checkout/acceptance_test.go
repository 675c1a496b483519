package checkout_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-template-storefront/internal/aws/awstest"
	"github.com/imrishuroy/go-template-storefront/internal/cart"
	"github.com/imrishuroy/go-template-storefront/internal/catalog"
	"github.com/imrishuroy/go-template-storefront/internal/checkout"
	"github.com/imrishuroy/go-template-storefront/internal/gateway"
	"github.com/imrishuroy/go-template-storefront/internal/gateway/gatewaytest"
	"github.com/imrishuroy/go-template-storefront/internal/handlers"
	"github.com/imrishuroy/go-template-storefront/internal/idempotency"
	"github.com/imrishuroy/go-template-storefront/internal/invoice"
	"github.com/imrishuroy/go-template-storefront/internal/notify"
	"github.com/imrishuroy/go-template-storefront/internal/orders"
)

type outbox struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (o *outbox) Send(ctx context.Context, msg notify.Message) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return fmt.Sprintf("msg-%d", len(o.sent)), nil
}

type widget struct {
	secret string
	result func(opts checkout.WidgetOptions, secret string) checkout.PaymentResult
}

func (w *widget) Load(ctx context.Context) error { return nil }

func (w *widget) Open(ctx context.Context, opts checkout.WidgetOptions) checkout.PaymentResult {
	return w.result(opts, w.secret)
}

type navigator struct{ url string }

func (n *navigator) Navigate(u string) { n.url = u }

type checkoutTestContext struct {
	server  *httptest.Server
	gateway *gatewaytest.Fake
	ledger  *orders.Store
	cart    *cart.Store
	mail    *outbox
	widget  *widget
	nav     *navigator
	orch    *checkout.Orchestrator

	outcome checkout.Outcome
	err     error
	status  int
}

func (c *checkoutTestContext) reset() {
	if c.server != nil {
		c.server.Close()
	}
	*c = checkoutTestContext{}
}

func (c *checkoutTestContext) theOrderIntakeAPIIsRunning() error {
	gin.SetMode(gin.TestMode)
	c.gateway = gatewaytest.New()
	dynamo := awstest.NewDynamo(map[string]string{"orders": "order_id", "idempotency": "idempotency_key"})
	c.ledger = orders.NewStore(dynamo, "orders")

	r := gin.New()
	handlers.RegisterOrdersRoutes(r, handlers.HandlerConfig{
		Gateway:       c.gateway,
		GatewaySecret: c.gateway.Secret,
		Ledger:        c.ledger,
		Idempotency:   idempotency.NewStore(dynamo, "idempotency", time.Hour),
	})
	c.server = httptest.NewServer(r)

	c.cart = cart.New()
	c.mail = &outbox{}
	c.widget = &widget{secret: c.gateway.Secret, result: func(checkout.WidgetOptions, string) checkout.PaymentResult {
		return checkout.PaymentDismissed{}
	}}
	c.nav = &navigator{}
	c.orch = checkout.New(checkout.Deps{
		Cart:      c.cart,
		Intake:    checkout.NewHTTPIntake(c.server.URL),
		Widget:    c.widget,
		Notifier:  notify.NewService(c.mail, invoice.NewGenerator(invoice.DefaultSeller), "orders@templify.studio", nil),
		Navigator: c.nav,
	})
	return nil
}

func (c *checkoutTestContext) theCartHolds(qty int, productID string) error {
	p, ok := catalog.Default().Get(productID)
	if !ok {
		return fmt.Errorf("unknown product %q", productID)
	}
	c.cart.AddItem(p)
	c.cart.UpdateQuantity(productID, qty)
	return nil
}

func (c *checkoutTestContext) theWidgetReturnsAForgedSignature() error {
	c.widget.result = func(opts checkout.WidgetOptions, _ string) checkout.PaymentResult {
		return checkout.PaymentCompleted{
			OrderID:   opts.OrderID,
			PaymentID: "pay_forged",
			Signature: gateway.Signature("not-the-secret", opts.OrderID, "pay_forged"),
		}
	}
	return nil
}

func (c *checkoutTestContext) theWidgetIsDismissed() error {
	c.widget.result = func(checkout.WidgetOptions, string) checkout.PaymentResult {
		return checkout.PaymentDismissed{}
	}
	return nil
}

func (c *checkoutTestContext) theWidgetCompletesPayment(paymentID string) error {
	c.widget.result = func(opts checkout.WidgetOptions, secret string) checkout.PaymentResult {
		return checkout.PaymentCompleted{
			OrderID:   opts.OrderID,
			PaymentID: paymentID,
			Signature: gateway.Signature(secret, opts.OrderID, paymentID),
		}
	}
	return nil
}

func (c *checkoutTestContext) checkOut(method orders.PaymentMethod, name, email string) {
	c.outcome, c.err = c.orch.Checkout(context.Background(), checkout.Request{
		Method:   method,
		Customer: orders.Customer{Name: name, Email: email},
	})
}

func (c *checkoutTestContext) iCheckOutByBankTransfer(name, email string) error {
	c.checkOut(orders.PaymentManual, name, email)
	return nil
}

func (c *checkoutTestContext) iCheckOutByCard(name, email string) error {
	c.checkOut(orders.PaymentCard, name, email)
	return nil
}

func (c *checkoutTestContext) aClientCreatesAnOrderFor(amount int) error {
	body := fmt.Sprintf(`{"amount":%d}`, amount)
	res, err := http.Post(c.server.URL+"/api/create-order", "application/json", strings.NewReader(body))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	c.status = res.StatusCode
	return nil
}

func (c *checkoutTestContext) theCheckoutStatusIs(status string) error {
	if string(c.outcome.Status) != status {
		return fmt.Errorf("expected status %s, got %s (err: %v)", status, c.outcome.Status, c.err)
	}
	return nil
}

func (c *checkoutTestContext) theOrderTotalsAre(subtotal, shipping, total float64) error {
	o := c.outcome.Order
	if o == nil {
		return errors.New("no order was placed")
	}
	for _, cmp := range []struct {
		name      string
		got, want float64
	}{{"subtotal", o.Subtotal, subtotal}, {"shipping", o.Shipping, shipping}, {"total", o.Total, total}} {
		if math.Abs(cmp.got-cmp.want) > 1e-9 {
			return fmt.Errorf("expected %s %.2f, got %.2f", cmp.name, cmp.want, cmp.got)
		}
	}
	return nil
}

func (c *checkoutTestContext) emailsSent(n int) error {
	if len(c.mail.sent) != n {
		return fmt.Errorf("expected %d emails, got %d", n, len(c.mail.sent))
	}
	return nil
}

func (c *checkoutTestContext) noEmailSent() error {
	return c.emailsSent(0)
}

func (c *checkoutTestContext) theEmailHasAnInvoiceAttached() error {
	if len(c.mail.sent) == 0 {
		return errors.New("no email sent")
	}
	msg := c.mail.sent[0]
	if !strings.Contains(msg.Subject, c.outcome.Order.OrderID) {
		return fmt.Errorf("subject %q lacks order id", msg.Subject)
	}
	if len(msg.Attachments) != 1 || !bytes.HasPrefix(msg.Attachments[0].Data, []byte("%PDF")) {
		return errors.New("expected one PDF attachment")
	}
	return nil
}

func (c *checkoutTestContext) theCartIsEmpty() error {
	if !c.cart.IsEmpty() {
		return fmt.Errorf("expected empty cart, got %d items", c.cart.ItemCount())
	}
	return nil
}

func (c *checkoutTestContext) theCartHoldsItems(n int) error {
	if c.cart.ItemCount() != n {
		return fmt.Errorf("expected %d items in cart, got %d", n, c.cart.ItemCount())
	}
	return nil
}

func (c *checkoutTestContext) confirmationParam(key, want string) error {
	u, err := url.Parse(c.nav.url)
	if err != nil {
		return err
	}
	if got := u.Query().Get(key); got != want {
		return fmt.Errorf("expected %s=%s on confirmation page, got %q", key, want, got)
	}
	return nil
}

func (c *checkoutTestContext) theConfirmationShowsPaymentMethod(method string) error {
	return c.confirmationParam("paymentMethod", method)
}

func (c *checkoutTestContext) theConfirmationShowsPaymentID(id string) error {
	return c.confirmationParam("paymentId", id)
}

func (c *checkoutTestContext) theAPIRespondsWith(status int) error {
	if c.status != status {
		return fmt.Errorf("expected status %d, got %d", status, c.status)
	}
	return nil
}

func (c *checkoutTestContext) theGatewayWasCalled(n int) error {
	if c.gateway.Calls() != n {
		return fmt.Errorf("expected %d gateway calls, got %d", n, c.gateway.Calls())
	}
	return nil
}

func (c *checkoutTestContext) theGatewayOrderIsRecordedAs(status string) error {
	entry, err := c.ledger.Get(context.Background(), c.outcome.Order.GatewayOrderID)
	if err != nil {
		return err
	}
	if entry == nil || entry.Status != status {
		return fmt.Errorf("expected ledger status %s, got %+v", status, entry)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the order intake API is running$`, tc.theOrderIntakeAPIIsRunning)
	ctx.Step(`^the cart holds (\d+) of "([^"]*)"$`, tc.theCartHolds)
	ctx.Step(`^the payment widget returns a forged signature$`, tc.theWidgetReturnsAForgedSignature)
	ctx.Step(`^the payment widget is dismissed$`, tc.theWidgetIsDismissed)
	ctx.Step(`^the payment widget completes payment "([^"]*)"$`, tc.theWidgetCompletesPayment)

	// When steps
	ctx.Step(`^I check out by bank transfer as "([^"]*)" with email "([^"]*)"$`, tc.iCheckOutByBankTransfer)
	ctx.Step(`^I check out by card as "([^"]*)" with email "([^"]*)"$`, tc.iCheckOutByCard)
	ctx.Step(`^a client asks the API to create an order for (\d+)$`, tc.aClientCreatesAnOrderFor)

	// Then steps
	ctx.Step(`^the checkout status is "([^"]*)"$`, tc.theCheckoutStatusIs)
	ctx.Step(`^the order subtotal is (\d+\.\d+), shipping (\d+\.\d+) and total (\d+\.\d+)$`, tc.theOrderTotalsAre)
	ctx.Step(`^exactly (\d+) confirmation emails? (?:is|are) sent$`, tc.emailsSent)
	ctx.Step(`^no confirmation email is sent$`, tc.noEmailSent)
	ctx.Step(`^the confirmation email has an invoice attached$`, tc.theEmailHasAnInvoiceAttached)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^the cart holds (\d+) items?$`, tc.theCartHoldsItems)
	ctx.Step(`^the confirmation page shows payment method "([^"]*)"$`, tc.theConfirmationShowsPaymentMethod)
	ctx.Step(`^the confirmation page shows payment id "([^"]*)"$`, tc.theConfirmationShowsPaymentID)
	ctx.Step(`^the API responds with status (\d+)$`, tc.theAPIRespondsWith)
	ctx.Step(`^the gateway was called (\d+) times?$`, tc.theGatewayWasCalled)
	ctx.Step(`^the gateway order is recorded as "([^"]*)"$`, tc.theGatewayOrderIsRecordedAs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../features/checkout.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
