package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-template-storefront/internal/aws"
	"github.com/imrishuroy/go-template-storefront/internal/config"
	"github.com/imrishuroy/go-template-storefront/internal/gateway"
	"github.com/imrishuroy/go-template-storefront/internal/handlers"
	"github.com/imrishuroy/go-template-storefront/internal/idempotency"
	"github.com/imrishuroy/go-template-storefront/internal/logging"
	"github.com/imrishuroy/go-template-storefront/internal/orders"
)

const idempotencyTTL = 48 * time.Hour

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestLogger(cfg.Logger))

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterOrdersRoutes(r, cfg)

	return r
}

// handlerConfig wires the gateway and the optional AWS backed stores.
func handlerConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (handlers.HandlerConfig, error) {
	logger = logging.OrNop(logger)
	hc := handlers.HandlerConfig{
		GatewaySecret: cfg.GatewayKeySecret,
		Logger:        logger,
	}

	if cfg.GatewayConfigured() {
		rp, err := gateway.NewRazorpay(cfg.GatewayKeyID, cfg.GatewayKeySecret)
		if err != nil {
			return hc, err
		}
		hc.Gateway = rp
	} else {
		logger.Warn("payment gateway credentials missing; create-order will fail")
	}

	if cfg.OrdersTable == "" && cfg.IdempotencyTable == "" && cfg.MetricsNamespace == "" {
		return hc, nil
	}
	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		return hc, err
	}
	if cfg.OrdersTable != "" {
		hc.Ledger = orders.NewStore(clients.DynamoDB, cfg.OrdersTable)
	}
	if cfg.IdempotencyTable != "" {
		hc.Idempotency = idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, idempotencyTTL)
	}
	hc.Metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	return hc, nil
}

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

	hc, err := handlerConfig(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to init dependencies", zap.Error(err))
	}
	logger.Info("order intake api configured",
		zap.Bool("ledger", hc.Ledger != nil),
		zap.Bool("idempotency", hc.Idempotency != nil),
		zap.Bool("gateway", hc.Gateway != nil),
	)

	r := setupRouter(hc)

	// if RUN_LOCAL=true, run a local HTTP server for development.
	if cfg.RunLocal {
		addr := ":" + cfg.Port
		logger.Info("running local server", zap.String("addr", addr))
		if err := r.Run(addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
