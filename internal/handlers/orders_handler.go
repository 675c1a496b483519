package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-template-storefront/internal/aws"
	"github.com/imrishuroy/go-template-storefront/internal/gateway"
	"github.com/imrishuroy/go-template-storefront/internal/idempotency"
	"github.com/imrishuroy/go-template-storefront/internal/logging"
	"github.com/imrishuroy/go-template-storefront/internal/orders"
	"github.com/imrishuroy/go-template-storefront/internal/pricing"
	"github.com/imrishuroy/go-template-storefront/internal/validation"
)

// IdempotencyHeader lets a client retry create-order without creating a second gateway order.
const IdempotencyHeader = "Idempotency-Key"

// maxDetailLen bounds the gateway error text echoed to clients.
const maxDetailLen = 160

// HandlerConfig groups dependencies for the order intake routes. Ledger and
// Idempotency are optional; without them the API is stateless.
type HandlerConfig struct {
	Gateway       gateway.Client
	GatewaySecret string
	Ledger        *orders.Store
	Idempotency   *idempotency.Store
	Metrics       *aws.Metrics
	Logger        *zap.Logger
}

type ordersHandler struct {
	cfg HandlerConfig
	log *zap.Logger
}

// RegisterOrdersRoutes registers the order intake routes under /api.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	h := &ordersHandler{cfg: cfg, log: logging.OrNop(cfg.Logger)}
	v := validation.New()

	api := r.Group("/api")
	api.POST("/create-order", func(c *gin.Context) { h.createOrder(c, v) })
	api.POST("/verify-payment", func(c *gin.Context) { h.verifyPayment(c, v) })
	api.GET("/orders/:id", h.getOrder)
}

func (h *ordersHandler) createOrder(c *gin.Context, v *validatorv10.Validate) {
	ctx := c.Request.Context()

	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, v); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	if h.cfg.Gateway == nil {
		h.log.Error("create order without gateway credentials")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to create order",
			"details": gateway.ErrNotConfigured.Error(),
		})
		return
	}

	idempKey := ""
	if h.cfg.Idempotency != nil {
		idempKey = c.GetHeader(IdempotencyHeader)
	}
	if idempKey != "" {
		created, err := h.cfg.Idempotency.CreateIfNotExists(ctx, idempKey, "")
		if err != nil {
			h.log.Error("idempotency check failed", zap.String("idempotency_key", idempKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Idempotency check failed"})
			return
		}
		if !created {
			h.replay(c, idempKey)
			return
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = gateway.DefaultCurrency
	}
	receipt := req.Receipt
	if receipt == "" {
		receipt = pricing.GenerateOrderNumber()
	}

	order, err := h.cfg.Gateway.CreateOrder(ctx, gateway.OrderRequest{
		AmountMinor: pricing.ToMinorUnits(req.Amount),
		Currency:    currency,
		Receipt:     receipt,
		Notes:       req.Notes,
	})
	if err != nil {
		h.log.Error("gateway order creation failed", zap.String("receipt", receipt), zap.Error(err))
		h.count(c, aws.MetricGatewayFailure)
		h.failIdempotency(c, idempKey, "gateway_failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to create order",
			"details": shortDetail(err),
		})
		return
	}

	body, err := json.Marshal(gin.H{"success": true, "order": order, "key_id": h.cfg.Gateway.KeyID()})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to encode order"})
		return
	}

	if err := h.record(c, order, receipt, idempKey, body); err != nil {
		h.log.Error("order ledger write failed", zap.String("order_id", order.ID), zap.Error(err))
		h.failIdempotency(c, idempKey, "ledger_failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to record order"})
		return
	}

	h.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("receipt", receipt),
		zap.Int64("amount_minor", order.Amount),
	)
	h.count(c, aws.MetricOrderCreated)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// record writes the CREATED ledger entry and completes the idempotency record,
// in one transaction when both are in play.
func (h *ordersHandler) record(c *gin.Context, order *gateway.Order, receipt, idempKey string, body []byte) error {
	ctx := c.Request.Context()
	entry := orders.LedgerEntry{
		OrderID:     order.ID,
		Receipt:     receipt,
		Status:      orders.StatusCreated,
		AmountMinor: order.Amount,
		Currency:    order.Currency,
		Notes:       order.Notes,
	}

	switch {
	case h.cfg.Ledger != nil && idempKey != "":
		return h.cfg.Ledger.CreateWithIdempotencyResponse(ctx, entry, h.cfg.Idempotency.TableName(), idempKey, string(body), http.StatusOK)
	case h.cfg.Ledger != nil:
		return h.cfg.Ledger.Create(ctx, entry)
	case idempKey != "":
		return h.cfg.Idempotency.MarkDone(ctx, idempKey, string(body), http.StatusOK)
	}
	return nil
}

// replay answers a repeated Idempotency-Key from the stored record.
func (h *ordersHandler) replay(c *gin.Context, key string) {
	rec, err := h.cfg.Idempotency.Get(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Idempotency check failed"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Idempotency record missing"})
		return
	}

	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" && json.Valid([]byte(rec.ResponseBody)) {
			c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order_id": rec.OrderID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"success": false, "message": "Request already in progress"})
	case idempotency.StatusFailed:
		// let client retry with a new key
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Previous attempt failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Unknown idempotency status"})
	}
}

func (h *ordersHandler) failIdempotency(c *gin.Context, key, note string) {
	if key == "" {
		return
	}
	if err := h.cfg.Idempotency.MarkFailed(c.Request.Context(), key, note); err != nil {
		h.log.Warn("mark idempotency failed", zap.String("idempotency_key", key), zap.Error(err))
	}
}

func (h *ordersHandler) verifyPayment(c *gin.Context, v *validatorv10.Validate) {
	ctx := c.Request.Context()

	var req validation.VerifyPaymentRequest
	if err := validation.BindAndValidate(c, &req, v); err != nil {
		return
	}
	log := h.log.With(zap.String("order_id", req.OrderID), zap.String("payment_id", req.PaymentID))

	if !gateway.VerifySignature(h.cfg.GatewaySecret, req.OrderID, req.PaymentID, req.Signature) {
		log.Warn("payment signature mismatch")
		h.count(c, aws.MetricSignatureMismatch)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Payment verification failed"})
		return
	}

	if h.cfg.Ledger != nil {
		err := h.cfg.Ledger.MarkPaid(ctx, req.OrderID, req.PaymentID)
		if errors.Is(err, orders.ErrStatusMismatch) {
			h.alreadyPaid(c, log, req)
			return
		}
		if err != nil {
			log.Error("mark paid failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to record payment"})
			return
		}
	}

	log.Info("payment verified")
	h.count(c, aws.MetricPaymentVerified)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified successfully"})
}

// alreadyPaid resolves a failed CREATED -> PAID transition: a replay of the
// same payment succeeds, anything else is rejected.
func (h *ordersHandler) alreadyPaid(c *gin.Context, log *zap.Logger, req validation.VerifyPaymentRequest) {
	entry, err := h.cfg.Ledger.Get(c.Request.Context(), req.OrderID)
	if err != nil {
		log.Error("ledger lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to record payment"})
		return
	}
	if entry == nil {
		log.Warn("verify for unknown order")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unknown order"})
		return
	}
	paid := entry.Status == orders.StatusPaid || entry.Status == orders.StatusEmailSent
	if paid && entry.PaymentID == req.PaymentID {
		log.Info("payment already verified")
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment already verified"})
		return
	}
	log.Warn("order not awaiting payment", zap.String("status", entry.Status))
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Order is not awaiting payment"})
}

func (h *ordersHandler) getOrder(c *gin.Context) {
	if h.cfg.Ledger == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Order ledger not configured"})
		return
	}
	entry, err := h.cfg.Ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error("ledger lookup failed", zap.String("order_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load order"})
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": entry})
}

func (h *ordersHandler) count(c *gin.Context, name string) {
	if err := h.cfg.Metrics.Count(c.Request.Context(), name, nil); err != nil {
		h.log.Warn("metric not recorded", zap.String("metric", name), zap.Error(err))
	}
}

// shortDetail keeps gateway errors to one short line.
func shortDetail(err error) string {
	msg := []rune(err.Error())
	if len(msg) > maxDetailLen {
		return string(msg[:maxDetailLen]) + "..."
	}
	return string(msg)
}
