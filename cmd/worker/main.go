package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-template-storefront/internal/aws"
	"github.com/imrishuroy/go-template-storefront/internal/config"
	"github.com/imrishuroy/go-template-storefront/internal/idempotency"
	"github.com/imrishuroy/go-template-storefront/internal/invoice"
	"github.com/imrishuroy/go-template-storefront/internal/logging"
	"github.com/imrishuroy/go-template-storefront/internal/notify"
	"github.com/imrishuroy/go-template-storefront/internal/orders"
)

const claimTTL = 7 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.IdempotencyTable == "" {
		logger.Fatal("IDEMPOTENCY_TABLE is required by the worker")
	}
	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	svc := notify.NewService(notify.NewSESMailer(clients.SES), invoice.NewGenerator(invoice.DefaultSeller), cfg.EmailFrom, logger)
	svc.Metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)

	var ledger *orders.Store
	if cfg.OrdersTable != "" {
		ledger = orders.NewStore(clients.DynamoDB, cfg.OrdersTable)
	}
	p := NewProcessor(idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, claimTTL), ledger, svc, logger)

	// If RUN_LOCAL=true, process a single message from LOCAL_SQS_BODY.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			logger.Fatal("LOCAL_SQS_BODY is required when RUN_LOCAL=true")
		}
		event := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "local-1", Body: body}}}
		resp, err := p.Handle(context.Background(), event)
		if err != nil || len(resp.BatchItemFailures) > 0 {
			logger.Fatal("local handler error", zap.Error(err), zap.Int("failures", len(resp.BatchItemFailures)))
		}
		return
	}

	lambda.Start(p.Handle)
}
