// Command storefront is a terminal client for the template store. It fills a
// cart from the catalogue and checks out by card or bank transfer.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-template-storefront/internal/aws"
	"github.com/imrishuroy/go-template-storefront/internal/cart"
	"github.com/imrishuroy/go-template-storefront/internal/catalog"
	"github.com/imrishuroy/go-template-storefront/internal/checkout"
	"github.com/imrishuroy/go-template-storefront/internal/config"
	"github.com/imrishuroy/go-template-storefront/internal/invoice"
	"github.com/imrishuroy/go-template-storefront/internal/logging"
	"github.com/imrishuroy/go-template-storefront/internal/notify"
	"github.com/imrishuroy/go-template-storefront/internal/orders"
)

type options struct {
	list    bool
	items   []string
	method  string
	name    string
	email   string
	phone   string
	address string
	apiURL  string
	outcome string
	secret  string
}

func parseFlags(args []string, cfg *config.Config) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("storefront", pflag.ContinueOnError)
	fs.BoolVarP(&opts.list, "list", "l", false, "list the catalogue and exit")
	fs.StringSliceVarP(&opts.items, "add", "a", nil, "product id to add, optionally id:qty (repeatable)")
	fs.StringVarP(&opts.method, "method", "m", string(orders.PaymentManual), "payment method: card or manual")
	fs.StringVar(&opts.name, "name", "", "customer name")
	fs.StringVar(&opts.email, "email", "", "customer email")
	fs.StringVar(&opts.phone, "phone", "", "customer phone")
	fs.StringVar(&opts.address, "address", "", "customer address")
	fs.StringVar(&opts.apiURL, "api", cfg.APIBaseURL, "order intake API base URL")
	fs.StringVar(&opts.outcome, "widget", "", "sandbox widget outcome: pay, dismiss or fail (prompts when empty)")
	fs.StringVar(&opts.secret, "sandbox-secret", cfg.GatewayKeySecret, "gateway test secret used to sign sandbox payments")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// parseItem splits "id" or "id:qty".
func parseItem(s string) (string, int, error) {
	id, qtyStr, found := strings.Cut(strings.TrimSpace(s), ":")
	if id == "" {
		return "", 0, fmt.Errorf("empty product id in %q", s)
	}
	if !found {
		return id, 1, nil
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil || qty < 1 {
		return "", 0, fmt.Errorf("bad quantity in %q", s)
	}
	return id, qty, nil
}

// fillCart adds the requested products. Out of stock products are rejected.
func fillCart(c *cart.Store, cat *catalog.Catalog, items []string) error {
	for _, raw := range items {
		id, qty, err := parseItem(raw)
		if err != nil {
			return err
		}
		p, ok := cat.Get(id)
		if !ok {
			return fmt.Errorf("unknown product %q", id)
		}
		if !p.InStock {
			return fmt.Errorf("%s is out of stock", p.Name)
		}
		c.AddQuantity(p, qty)
	}
	return nil
}

// newNotifier queues confirmations for the worker when a queue is configured
// and otherwise sends them directly through SES.
func newNotifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (notify.Notifier, error) {
	if cfg.NotifyQueueURL == "" && cfg.EmailFrom == "" {
		// no sender: the service reports every send as failed
		return notify.NewService(nil, nil, "", logger), nil
	}
	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.NotifyQueueURL != "" {
		return notify.NewQueueNotifier(aws.NewPublisher(clients.SQS, cfg.NotifyQueueURL), logger), nil
	}
	svc := notify.NewService(notify.NewSESMailer(clients.SES), invoice.NewGenerator(invoice.DefaultSeller), cfg.EmailFrom, logger)
	svc.Metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	return svc, nil
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer, cfg *config.Config, notifier notify.Notifier, logger *zap.Logger) (checkout.Outcome, error) {
	opts, err := parseFlags(args, cfg)
	if err != nil {
		return checkout.Outcome{}, err
	}
	con := console{out: out}
	cat := catalog.Default()

	if opts.list {
		con.listCatalog(cat.All())
		return checkout.Outcome{}, nil
	}

	c := cart.New(cart.WithNotifier(con.added))
	if err := fillCart(c, cat, opts.items); err != nil {
		return checkout.Outcome{}, err
	}
	con.summary(len(c.Items()), c.Total())

	orch := checkout.New(checkout.Deps{
		Cart:      c,
		Intake:    checkout.NewHTTPIntake(opts.apiURL),
		Widget:    newSandboxWidget(opts.secret, opts.outcome, in, out),
		Notifier:  notifier,
		Navigator: con,
		Notices:   con,
		Logger:    logger,
	})
	return orch.Checkout(ctx, checkout.Request{
		Method: orders.PaymentMethod(opts.method),
		Customer: orders.Customer{
			Name:    opts.name,
			Email:   opts.email,
			Phone:   opts.phone,
			Address: opts.address,
		},
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	notifier, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init notifier", zap.Error(err))
	}

	outcome, err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, cfg, notifier, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if outcome.Status == checkout.StatusSucceededEmailFailed {
		os.Exit(2)
	}
}
