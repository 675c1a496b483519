package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-template-storefront/internal/aws"
	"github.com/imrishuroy/go-template-storefront/internal/logging"
	"github.com/imrishuroy/go-template-storefront/internal/orders"
)

// QueueMessage is the body the worker consumes.
type QueueMessage struct {
	CorrelationID string         `json:"correlation_id"`
	Order         orders.Details `json:"order"`
}

// QueueNotifier hands confirmations to the worker over SQS. A true result means
// the message was queued, not that the email was delivered.
type QueueNotifier struct {
	Publisher *aws.Publisher
	Logger    *zap.Logger
}

// NewQueueNotifier returns a QueueNotifier bound to publisher.
func NewQueueNotifier(publisher *aws.Publisher, logger *zap.Logger) *QueueNotifier {
	return &QueueNotifier{Publisher: publisher, Logger: logging.OrNop(logger)}
}

func (q *QueueNotifier) SendOrderConfirmationEmail(ctx context.Context, order orders.Details) bool {
	log := logging.OrNop(q.Logger).With(zap.String("order_id", order.OrderID))
	msg := QueueMessage{CorrelationID: uuid.NewString(), Order: order}
	if err := q.publish(ctx, msg); err != nil {
		log.Error("confirmation not queued", zap.Error(err))
		return false
	}
	log.Info("confirmation queued", zap.String("correlation_id", msg.CorrelationID))
	return true
}

func (q *QueueNotifier) publish(ctx context.Context, msg QueueMessage) error {
	if q.Publisher == nil {
		return fmt.Errorf("queue publisher not configured")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}
	return q.Publisher.Publish(ctx, string(body), map[string]string{
		"order_id":       msg.Order.OrderID,
		"payment_method": string(msg.Order.PaymentMethod),
		"correlation_id": msg.CorrelationID,
	})
}
