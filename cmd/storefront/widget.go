package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-template-storefront/internal/checkout"
	"github.com/imrishuroy/go-template-storefront/internal/gateway"
	"github.com/imrishuroy/go-template-storefront/internal/pricing"
)

// Widget outcomes selectable from the command line.
const (
	outcomePay     = "pay"
	outcomeDismiss = "dismiss"
	outcomeFail    = "fail"
)

var errNoSandboxSecret = errors.New("sandbox widget needs the gateway test secret")

// sandboxWidget stands in for the hosted widget in gateway test mode. A
// completed payment is signed with the test secret exactly as the gateway would.
type sandboxWidget struct {
	secret  string
	outcome string // empty prompts on in
	in      *bufio.Reader
	out     io.Writer
}

func newSandboxWidget(secret, outcome string, in io.Reader, out io.Writer) *sandboxWidget {
	return &sandboxWidget{secret: secret, outcome: outcome, in: bufio.NewReader(in), out: out}
}

func (w *sandboxWidget) Load(ctx context.Context) error {
	if w.secret == "" {
		return errNoSandboxSecret
	}
	return nil
}

func (w *sandboxWidget) Open(ctx context.Context, opts checkout.WidgetOptions) checkout.PaymentResult {
	fmt.Fprintf(w.out, "payment window: %s %s for %s (key %s)\n",
		opts.Currency, pricing.FormatAmount(pricing.FromMinorUnits(opts.AmountMinor)), opts.Description, opts.KeyID)

	choice := w.outcome
	if choice == "" {
		choice = w.prompt()
	}
	switch choice {
	case outcomePay:
		paymentID := "pay_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
		return checkout.PaymentCompleted{
			OrderID:   opts.OrderID,
			PaymentID: paymentID,
			Signature: gateway.Signature(w.secret, opts.OrderID, paymentID),
		}
	case outcomeFail:
		return checkout.PaymentFailed{Reason: "Payment declined by bank"}
	default:
		return checkout.PaymentDismissed{}
	}
}

func (w *sandboxWidget) prompt() string {
	fmt.Fprint(w.out, "[p]ay, [d]ismiss or [f]ail? ")
	line, err := w.in.ReadString('\n')
	if err != nil && line == "" {
		return outcomeDismiss
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "p", outcomePay:
		return outcomePay
	case "f", outcomeFail:
		return outcomeFail
	default:
		return outcomeDismiss
	}
}
