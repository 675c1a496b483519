// Package notify sends the order confirmation email with the invoice attached.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-template-storefront/internal/aws"
	"github.com/imrishuroy/go-template-storefront/internal/invoice"
	"github.com/imrishuroy/go-template-storefront/internal/logging"
	"github.com/imrishuroy/go-template-storefront/internal/orders"
)

// ErrSenderNotConfigured is logged when no outbound sender identity is set.
var ErrSenderNotConfigured = errors.New("email sender not configured")

// Notifier delivers the confirmation for a placed order and reports whether it went out.
type Notifier interface {
	SendOrderConfirmationEmail(ctx context.Context, order orders.Details) bool
}

// DocumentRenderer renders the invoice attached to the email.
type DocumentRenderer interface {
	Generate(order orders.Details) ([]byte, error)
}

// Service composes the confirmation email and hands it to a Mailer.
type Service struct {
	Mailer    Mailer
	Documents DocumentRenderer
	From      string
	Bank      BankDetails
	Metrics   *aws.Metrics
	Logger    *zap.Logger
}

// NewService returns a Service with the default bank details for manual orders.
func NewService(mailer Mailer, docs DocumentRenderer, from string, logger *zap.Logger) *Service {
	return &Service{
		Mailer:    mailer,
		Documents: docs,
		From:      from,
		Bank:      DefaultBankDetails,
		Logger:    logging.OrNop(logger),
	}
}

// SendOrderConfirmationEmail builds the invoice and email and sends it. Provider
// failures and panics are logged and reported as false.
func (s *Service) SendOrderConfirmationEmail(ctx context.Context, order orders.Details) (sent bool) {
	log := logging.OrNop(s.Logger).With(zap.String("order_id", order.OrderID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("confirmation email panicked", zap.Any("panic", r))
			sent = false
		}
		s.count(ctx, sent)
	}()

	msgID, err := s.send(ctx, order)
	if err != nil {
		log.Error("confirmation email failed", zap.Error(err))
		return false
	}
	log.Info("confirmation email sent",
		zap.String("message_id", msgID),
		zap.String("payment_method", string(order.PaymentMethod)),
	)
	return true
}

func (s *Service) send(ctx context.Context, order orders.Details) (string, error) {
	if s.From == "" {
		return "", ErrSenderNotConfigured
	}
	if s.Mailer == nil || s.Documents == nil {
		return "", fmt.Errorf("notification service not wired")
	}
	if order.Customer.Email == "" {
		return "", fmt.Errorf("order %s has no customer email", order.OrderID)
	}

	pdf, err := s.Documents.Generate(order)
	if err != nil {
		return "", fmt.Errorf("generate invoice: %w", err)
	}

	var body bytes.Buffer
	if err := renderBody(&body, order, s.Bank); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}

	return s.Mailer.Send(ctx, Message{
		From:    s.From,
		To:      []string{order.Customer.Email},
		Subject: Subject(order),
		HTML:    body.String(),
		Attachments: []Attachment{{
			Filename:    invoice.Filename(order),
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	})
}

func (s *Service) count(ctx context.Context, sent bool) {
	name := aws.MetricConfirmationSent
	if !sent {
		name = aws.MetricConfirmationFailed
	}
	if err := s.Metrics.Count(ctx, name, nil); err != nil {
		logging.OrNop(s.Logger).Warn("metric not recorded", zap.String("metric", name), zap.Error(err))
	}
}

// Subject is the email subject line; it always carries the order id.
func Subject(order orders.Details) string {
	if order.IsManual() {
		return fmt.Sprintf("Order Received - %s (Payment Pending)", order.OrderID)
	}
	return fmt.Sprintf("Order Confirmation - %s", order.OrderID)
}
