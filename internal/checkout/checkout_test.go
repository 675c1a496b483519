package checkout

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-template-storefront/internal/cart"
	"github.com/imrishuroy/go-template-storefront/internal/catalog"
	"github.com/imrishuroy/go-template-storefront/internal/orders"
)

const testSecret = "test_secret"

var resume = catalog.Product{ID: "tpl-resume-minimal", Name: "Minimal Resume", Description: "One page resume", Price: 299, Category: "Resumes"}

type harness struct {
	cart     *cart.Store
	intake   *stubIntake
	widget   *scriptedWidget
	notifier *recordingNotifier
	nav      *recordingNavigator
	notices  *recordingNotices
	orch     *Orchestrator
}

func newHarness(result func(WidgetOptions) PaymentResult) *harness {
	h := &harness{
		cart:     cart.New(),
		intake:   &stubIntake{secret: testSecret},
		widget:   &scriptedWidget{result: result},
		notifier: &recordingNotifier{},
		nav:      &recordingNavigator{},
		notices:  &recordingNotices{},
	}
	h.orch = New(Deps{
		Cart:      h.cart,
		Intake:    h.intake,
		Widget:    h.widget,
		Notifier:  h.notifier,
		Navigator: h.nav,
		Notices:   h.notices,
		Now:       func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) },
	})
	return h
}

var customer = orders.Customer{Name: "Asha Rao", Email: "asha@example.com"}

func TestManualCheckout_PlacesOrder(t *testing.T) {
	h := newHarness(nil)
	h.cart.AddItem(resume)

	out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentManual, Customer: customer})
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, out.Status)

	require.NotNil(t, out.Order)
	assert.Equal(t, 299.0, out.Order.Subtotal)
	assert.Equal(t, 50.0, out.Order.Shipping)
	assert.Equal(t, 349.0, out.Order.Total)
	assert.Equal(t, orders.ManualPaymentPrefix+out.Order.OrderID, out.Order.PaymentID)
	assert.Regexp(t, `^ORD-[0-9A-Z]+-[0-9A-Z]{5}$`, out.Order.OrderID)
	assert.Regexp(t, `^INV-[0-9A-Z]+-[0-9A-Z]{5}$`, out.Order.InvoiceID)

	assert.Equal(t, 1, h.notifier.count())
	assert.True(t, h.cart.IsEmpty())
	assert.Empty(t, h.intake.creates, "manual checkout makes no gateway call")
	assert.Equal(t, NoticeSuccess, h.notices.last().Level)

	require.Len(t, h.nav.urls, 1)
	u, err := url.Parse(h.nav.urls[0])
	require.NoError(t, err)
	assert.Equal(t, ConfirmationPath, u.Path)
	q := u.Query()
	assert.Equal(t, out.Order.OrderID, q.Get("orderId"))
	assert.Equal(t, "manual", q.Get("paymentMethod"))
	assert.Empty(t, q.Get("paymentId"))
	assert.Equal(t, "349.00", q.Get("total"))
	assert.Equal(t, "asha@example.com", q.Get("email"))
	assert.Equal(t, "Asha Rao", q.Get("name"))
}

func TestManualCheckout_RequiresNameAndEmail(t *testing.T) {
	for _, c := range []orders.Customer{{}, {Name: "Asha"}, {Email: "asha@example.com"}, {Name: "Asha", Email: "nope"}} {
		h := newHarness(nil)
		h.cart.AddItem(resume)

		out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentManual, Customer: c})
		require.ErrorIs(t, err, ErrMissingCustomer)
		assert.Equal(t, StatusValidationFailed, out.Status)
		assert.Equal(t, 0, h.notifier.count())
		assert.Equal(t, 1, h.cart.ItemCount())
		assert.Empty(t, h.nav.urls)
		assert.Equal(t, NoticeWarning, h.notices.last().Level)
	}
}

func TestCardCheckout_Completed(t *testing.T) {
	h := newHarness(completeWith(testSecret, "pay_1"))
	h.cart.AddItem(resume)
	h.cart.AddItem(resume)

	out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentCard, Customer: customer})
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, out.Status)

	require.Len(t, h.intake.creates, 1)
	created := h.intake.creates[0]
	assert.Equal(t, 598.0, created.Amount, "free shipping at 500 and above")
	assert.Equal(t, "INR", created.Currency)
	assert.Equal(t, []LineItem{{ID: resume.ID, Quantity: 2, Price: 299}}, created.Items)

	require.Len(t, h.widget.opened, 1)
	assert.Equal(t, "order_1", h.widget.opened[0].OrderID)
	assert.Equal(t, int64(59800), h.widget.opened[0].AmountMinor)
	assert.Equal(t, customer, h.widget.opened[0].Prefill)

	require.Len(t, h.intake.verifies, 1)
	assert.Equal(t, "pay_1", out.Order.PaymentID)
	assert.Equal(t, "order_1", out.Order.GatewayOrderID)
	assert.Equal(t, created.Receipt, out.Order.OrderID)
	assert.Equal(t, 1, h.notifier.count())
	assert.True(t, h.cart.IsEmpty())

	u, err := url.Parse(out.ConfirmationURL)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", u.Query().Get("paymentId"))
	assert.Empty(t, u.Query().Get("paymentMethod"))
}

func TestCardCheckout_DismissedLeavesCart(t *testing.T) {
	h := newHarness(func(WidgetOptions) PaymentResult { return PaymentDismissed{} })
	h.cart.AddItem(resume)

	out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentCard, Customer: customer})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, out.Status)
	assert.Nil(t, out.Order)
	assert.Equal(t, 1, h.cart.ItemCount())
	assert.Equal(t, 0, h.notifier.count())
	assert.Empty(t, h.intake.verifies)
	assert.Empty(t, h.nav.urls)
	assert.Equal(t, Notice{Level: NoticeInfo, Title: "Checkout closed", Message: "No payment was taken. Your cart is still here."}, h.notices.last())
}

func TestCardCheckout_ForgedSignatureIsNotPaid(t *testing.T) {
	h := newHarness(completeWith("wrong_secret", "pay_1"))
	h.cart.AddItem(resume)

	out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentCard, Customer: customer})
	require.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, StatusPaymentFailed, out.Status)
	assert.False(t, out.Placed())
	assert.Equal(t, 1, h.cart.ItemCount())
	assert.Equal(t, 0, h.notifier.count())
	assert.Empty(t, h.nav.urls)
	assert.Equal(t, NoticeError, h.notices.last().Level)
}

func TestCardCheckout_GatewayFailureKeepsCart(t *testing.T) {
	h := newHarness(completeWith(testSecret, "pay_1"))
	h.intake.createErr = errors.New("status 500: Failed to create order")
	h.cart.AddItem(resume)

	out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentCard, Customer: customer})
	require.Error(t, err)
	assert.Equal(t, StatusPaymentFailed, out.Status)
	assert.Empty(t, h.widget.opened, "widget never opens without a server order")
	assert.Equal(t, 1, h.cart.ItemCount())
}

func TestCardCheckout_PaymentFailed(t *testing.T) {
	h := newHarness(func(WidgetOptions) PaymentResult { return PaymentFailed{Reason: "card declined"} })
	h.cart.AddItem(resume)

	out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentCard, Customer: customer})
	require.ErrorIs(t, err, ErrPaymentDeclined)
	assert.Equal(t, StatusPaymentFailed, out.Status)
	assert.Equal(t, "card declined", h.notices.last().Message)
	assert.Equal(t, 1, h.cart.ItemCount())
}

func TestCheckout_EmailFailureIsDistinct(t *testing.T) {
	h := newHarness(completeWith(testSecret, "pay_1"))
	h.notifier.fail = true
	h.cart.AddItem(resume)

	out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentCard, Customer: customer})
	require.NoError(t, err)
	assert.Equal(t, StatusSucceededEmailFailed, out.Status)
	assert.True(t, out.Placed())
	assert.True(t, h.cart.IsEmpty())
	assert.Len(t, h.nav.urls, 1)
	assert.Equal(t, NoticeWarning, h.notices.last().Level)
	assert.Contains(t, h.notices.last().Message, out.Order.OrderID)
}

func TestCheckout_WidgetLoadIsMemoised(t *testing.T) {
	h := newHarness(func(WidgetOptions) PaymentResult { return PaymentDismissed{} })
	h.widget.loadErr = []error{errScriptLoad}
	h.cart.AddItem(resume)
	req := Request{Method: orders.PaymentCard, Customer: customer}

	out, err := h.orch.Checkout(context.Background(), req)
	require.ErrorIs(t, err, errScriptLoad)
	assert.Equal(t, StatusPaymentFailed, out.Status)
	assert.Empty(t, h.intake.creates)

	for i := 0; i < 3; i++ {
		_, err = h.orch.Checkout(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, h.widget.loads, "one failed load, then one cached success")
}

func TestCheckout_InFlightGuard(t *testing.T) {
	h := newHarness(func(WidgetOptions) PaymentResult { return PaymentDismissed{} })
	h.intake.blockCreate = make(chan struct{})
	h.cart.AddItem(resume)
	req := Request{Method: orders.PaymentCard, Customer: customer}

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Checkout(context.Background(), req)
		done <- err
	}()
	require.Eventually(t, h.orch.InFlight, time.Second, time.Millisecond)

	_, err := h.orch.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	close(h.intake.blockCreate)
	require.NoError(t, <-done)
	assert.False(t, h.orch.InFlight())
	assert.Len(t, h.intake.creates, 1)
}

func TestCheckout_EmptyCartAndUnknownMethod(t *testing.T) {
	h := newHarness(nil)

	out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentManual, Customer: customer})
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StatusValidationFailed, out.Status)

	h.cart.AddItem(resume)
	out, err = h.orch.Checkout(context.Background(), Request{Method: "crypto", Customer: customer})
	require.ErrorIs(t, err, ErrUnknownMethod)
	assert.Equal(t, StatusValidationFailed, out.Status)
}

func TestCheckout_RecoversPanics(t *testing.T) {
	h := newHarness(func(WidgetOptions) PaymentResult { panic("widget crashed") })
	h.cart.AddItem(resume)

	out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentCard, Customer: customer})
	require.ErrorIs(t, err, ErrUnexpected)
	assert.Equal(t, StatusPaymentFailed, out.Status)
	assert.Equal(t, 1, h.cart.ItemCount())
	assert.False(t, h.orch.InFlight())
}

func TestConfirmationURL_Card(t *testing.T) {
	got := ConfirmationURL(orders.Details{
		OrderID:       "ORD-1",
		PaymentID:     "pay_1",
		PaymentMethod: orders.PaymentCard,
		Total:         1499,
		Customer:      orders.Customer{Name: "A B", Email: "a@b.co"},
	})
	assert.Equal(t, "/order-confirmation?email=a%40b.co&name=A+B&orderId=ORD-1&paymentId=pay_1&total=1499.00", got)
}

func TestCardCheckout_CartChangesDuringPaymentDoNotReachOrder(t *testing.T) {
	var h *harness
	h = newHarness(func(opts WidgetOptions) PaymentResult {
		h.cart.AddItem(resume)
		return completeWith(testSecret, "pay_1")(opts)
	})
	h.cart.AddItem(resume)

	out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentCard, Customer: customer})
	require.NoError(t, err)
	require.NotNil(t, out.Order)

	charged := h.widget.opened[0].AmountMinor
	assert.Equal(t, int64(34900), charged)
	assert.Equal(t, 349.0, out.Order.Total)
	assert.Equal(t, 299.0, out.Order.Subtotal)
	require.Len(t, out.Order.Items, 1)
	assert.Equal(t, 1, out.Order.Items[0].Quantity)

	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, 349.0, h.notifier.sent[0].Total)

	u, err := url.Parse(out.ConfirmationURL)
	require.NoError(t, err)
	assert.Equal(t, "349.00", u.Query().Get("total"))
}

func TestCardCheckout_RejectsMalformedContact(t *testing.T) {
	h := newHarness(completeWith(testSecret, "pay_1"))
	h.cart.AddItem(resume)

	bad := orders.Customer{Name: "Asha Rao", Email: "a@b.com\r\nBcc: someone@example.org"}
	out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentCard, Customer: bad})
	require.ErrorIs(t, err, ErrMissingCustomer)
	assert.Equal(t, StatusValidationFailed, out.Status)
	assert.Empty(t, h.intake.creates)
	assert.Zero(t, h.notifier.count())
	assert.Equal(t, 1, h.cart.ItemCount())
}

func TestCardCheckout_WithoutContactIsAllowed(t *testing.T) {
	h := newHarness(completeWith(testSecret, "pay_1"))
	h.cart.AddItem(resume)

	out, err := h.orch.Checkout(context.Background(), Request{Method: orders.PaymentCard})
	require.NoError(t, err)
	assert.True(t, out.Placed())
	assert.Len(t, h.intake.creates, 1)
}
