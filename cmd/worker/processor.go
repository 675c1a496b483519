package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-template-storefront/internal/idempotency"
	"github.com/imrishuroy/go-template-storefront/internal/logging"
	"github.com/imrishuroy/go-template-storefront/internal/notify"
	"github.com/imrishuroy/go-template-storefront/internal/orders"
)

// defaultMaxReceives matches the queue's redrive policy.
const defaultMaxReceives = 5

// errClaimBusy leaves the message on the queue while another attempt holds the
// email claim. A claim that never settles ends in the dead-letter queue.
var errClaimBusy = errors.New("email claim in progress")

// Processor sends each queued confirmation email at most once per order.
type Processor struct {
	claims      *idempotency.Store
	ledger      *orders.Store
	notifier    notify.Notifier
	maxReceives int
	log         *zap.Logger
}

// NewProcessor creates a worker processor. ledger may be nil.
func NewProcessor(claims *idempotency.Store, ledger *orders.Store, notifier notify.Notifier, logger *zap.Logger) *Processor {
	return &Processor{
		claims:      claims,
		ledger:      ledger,
		notifier:    notifier,
		maxReceives: defaultMaxReceives,
		log:         logging.OrNop(logger),
	}
}

// Handle processes an SQS batch and reports failed records individually so
// successful ones are not redelivered.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Error("worker error", zap.String("message_id", rec.MessageId), zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	msg, err := decodeMessage(rec.Body)
	if err != nil {
		return err
	}
	order := msg.Order
	key := idempotency.EmailClaimKey(order.OrderID)
	log := p.log.With(
		zap.String("order_id", order.OrderID),
		zap.String("correlation_id", msg.CorrelationID),
	)
	log.Info("received confirmation")

	// Step 1: claim the email for this order
	proceed, err := p.claim(ctx, log, key, order.OrderID)
	if err != nil || !proceed {
		return err
	}

	if p.ledger != nil && order.GatewayOrderID != "" {
		if err := p.ledger.IncrementAttempts(ctx, order.GatewayOrderID); err != nil {
			log.Warn("attempt counter not updated", zap.Error(err))
		}
	}

	// Step 2: send
	if !p.notifier.SendOrderConfirmationEmail(ctx, order) {
		releaseErr := p.claims.MarkFailed(ctx, key, "send_failed")
		if releaseErr != nil {
			log.Error("failed to release email claim", zap.Error(releaseErr))
		}
		if p.finalAttempt(rec) {
			p.transition(ctx, log, order.GatewayOrderID, orders.StatusPaid, orders.StatusFailed)
		}
		if releaseErr != nil {
			return fmt.Errorf("confirmation email for %s not sent, claim not released: %w", order.OrderID, releaseErr)
		}
		return fmt.Errorf("confirmation email for %s not sent", order.OrderID)
	}

	// Step 3: complete the claim, then the ledger
	response := fmt.Sprintf(`{"order_id":%q,"status":%q}`, order.OrderID, orders.StatusEmailSent)
	if err := p.claims.MarkDone(ctx, key, response, 200); err != nil {
		// the email is out; the claim stays IN_PROGRESS so a duplicate is never resent
		log.Error("failed to complete email claim", zap.Error(err))
	}
	p.transition(ctx, log, order.GatewayOrderID, orders.StatusPaid, orders.StatusEmailSent)

	log.Info("confirmation email sent")
	return nil
}

// claim takes the email claim for orderID. It returns false without error
// when the email was already sent or is being sent by another invocation.
func (p *Processor) claim(ctx context.Context, log *zap.Logger, key, orderID string) (bool, error) {
	created, err := p.claims.CreateIfNotExists(ctx, key, orderID)
	if err != nil {
		return false, fmt.Errorf("claim email: %w", err)
	}
	if created {
		return true, nil
	}

	rec, err := p.claims.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read email claim: %w", err)
	}
	if rec == nil {
		return false, fmt.Errorf("email claim for %s vanished", orderID)
	}
	switch rec.Status {
	case idempotency.StatusDone:
		log.Info("confirmation already sent")
		return false, nil
	case idempotency.StatusInProgress:
		// a send may already be on the wire; never risk a duplicate
		log.Warn("confirmation in progress elsewhere, retrying later")
		return false, fmt.Errorf("%w for %s", errClaimBusy, orderID)
	case idempotency.StatusFailed:
		reclaimed, err := p.claims.Reclaim(ctx, key)
		if err != nil {
			return false, fmt.Errorf("reclaim email: %w", err)
		}
		if !reclaimed {
			log.Info("email claim taken by another retry")
			return false, nil
		}
		log.Info("retrying failed confirmation")
		return true, nil
	default:
		return false, fmt.Errorf("unexpected email claim status %q", rec.Status)
	}
}

func (p *Processor) transition(ctx context.Context, log *zap.Logger, gatewayOrderID, from, to string) {
	if p.ledger == nil || gatewayOrderID == "" {
		return
	}
	err := p.ledger.UpdateStatus(ctx, gatewayOrderID, from, to)
	if errors.Is(err, orders.ErrStatusMismatch) {
		log.Warn("ledger not in expected state", zap.String("from", from), zap.String("to", to))
		return
	}
	if err != nil {
		log.Error("ledger update failed", zap.String("to", to), zap.Error(err))
	}
}

func (p *Processor) finalAttempt(rec events.SQSMessage) bool {
	n, err := strconv.Atoi(rec.Attributes["ApproximateReceiveCount"])
	return err == nil && n >= p.maxReceives
}
