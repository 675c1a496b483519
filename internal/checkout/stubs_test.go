package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/imrishuroy/go-template-storefront/internal/gateway"
	"github.com/imrishuroy/go-template-storefront/internal/orders"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []orders.Details
	fail bool
}

func (n *recordingNotifier) SendOrderConfirmationEmail(ctx context.Context, order orders.Details) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, order)
	return !n.fail
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type recordingNavigator struct {
	urls []string
}

func (n *recordingNavigator) Navigate(url string) { n.urls = append(n.urls, url) }

type recordingNotices struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *recordingNotices) Notify(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotices) last() Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return Notice{}
	}
	return n.notices[len(n.notices)-1]
}

// stubIntake signs completed payments with secret so verification can be checked.
type stubIntake struct {
	secret      string
	createErr   error
	creates     []CreateOrderInput
	verifies    []Verification
	blockCreate chan struct{}
}

func (s *stubIntake) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreatedOrder, error) {
	if s.blockCreate != nil {
		<-s.blockCreate
	}
	s.creates = append(s.creates, in)
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &CreatedOrder{
		Order: gateway.Order{ID: "order_1", Amount: int64(in.Amount * 100), Currency: in.Currency, Receipt: in.Receipt},
		KeyID: "rzp_test_key",
	}, nil
}

func (s *stubIntake) VerifyPayment(ctx context.Context, v Verification) error {
	s.verifies = append(s.verifies, v)
	if !gateway.VerifySignature(s.secret, v.OrderID, v.PaymentID, v.Signature) {
		return ErrVerificationFailed
	}
	return nil
}

// scriptedWidget returns a fixed result and counts loads.
type scriptedWidget struct {
	result  func(opts WidgetOptions) PaymentResult
	loadErr []error
	loads   int
	opened  []WidgetOptions
}

func (w *scriptedWidget) Load(ctx context.Context) error {
	w.loads++
	if len(w.loadErr) > 0 {
		err := w.loadErr[0]
		w.loadErr = w.loadErr[1:]
		return err
	}
	return nil
}

func (w *scriptedWidget) Open(ctx context.Context, opts WidgetOptions) PaymentResult {
	w.opened = append(w.opened, opts)
	return w.result(opts)
}

func completeWith(secret, paymentID string) func(WidgetOptions) PaymentResult {
	return func(opts WidgetOptions) PaymentResult {
		return PaymentCompleted{
			OrderID:   opts.OrderID,
			PaymentID: paymentID,
			Signature: gateway.Signature(secret, opts.OrderID, paymentID),
		}
	}
}

var errScriptLoad = errors.New("script blocked")
