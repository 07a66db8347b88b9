package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pos-service/internal/billing"
	"pos-service/internal/models"
	"pos-service/internal/service"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// OrderService is the order surface the handlers call
type OrderService interface {
	CreateOrder(ctx context.Context, req *service.CreateOrderRequest) (*service.OrderView, error)
	GetOrder(ctx context.Context, orderID int64) (*service.OrderView, error)
	UpdateOrder(ctx context.Context, orderID int64, req *service.UpdateOrderRequest) (*service.OrderView, error)
	AddItem(ctx context.Context, orderID int64, req *service.AddItemRequest) (*service.OrderView, error)
	UpdateItem(ctx context.Context, orderID, lineID int64, req *service.UpdateItemRequest) (*service.OrderView, error)
	RemoveItem(ctx context.Context, orderID, lineID int64) (*service.OrderView, error)
}

// PaymentService is the payment surface the handlers call
type PaymentService interface {
	CreatePayment(ctx context.Context, req *service.CreatePaymentRequest, idempotencyKey string) (*models.Payment, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	UpdatePayment(ctx context.Context, id int64, patch billing.PaymentPatch) (*models.Payment, error)
	DeletePayment(ctx context.Context, id int64) (bool, error)
}

// RefundService is the refund surface the handlers call
type RefundService interface {
	CreateRefund(ctx context.Context, req *service.CreateRefundRequest) (*models.Refund, error)
	UpdateRefund(ctx context.Context, id int64, patch billing.RefundPatch) (*models.Refund, error)
}

// GiftCardService is the gift card surface the handlers call
type GiftCardService interface {
	IssueGiftCard(ctx context.Context, req *service.IssueGiftCardRequest) (*models.GiftCard, error)
	GetGiftCardByCode(ctx context.Context, code string) (*models.GiftCard, error)
}

// Pinger is a dependency the readiness check probes
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	orders    OrderService
	payments  PaymentService
	refunds   RefundService
	giftCards GiftCardService
	checks    map[string]Pinger
}

// NewHandler creates a new HTTP handler
func NewHandler(orders OrderService, payments PaymentService, refunds RefundService, giftCards GiftCardService) *Handler {
	return &Handler{
		orders:    orders,
		payments:  payments,
		refunds:   refunds,
		giftCards: giftCards,
		checks:    map[string]Pinger{},
	}
}

// AddReadinessCheck registers a dependency probed by /ready
func (h *Handler) AddReadinessCheck(name string, p Pinger) {
	h.checks[name] = p
}

// UpdatePaymentRequest lists the payment fields a PATCH may change
type UpdatePaymentRequest struct {
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	PaidAt   *time.Time       `json:"paid_at,omitempty"`
	Method   *string          `json:"method,omitempty"`
	Provider *string          `json:"provider,omitempty"`
	Currency *string          `json:"currency,omitempty"`
	Status   *string          `json:"status,omitempty"`
}

// UpdateRefundRequest lists the refund fields a PATCH may change
type UpdateRefundRequest struct {
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Reason       *string          `json:"reason,omitempty"`
	RefundMethod *string          `json:"refund_method,omitempty"`
	Currency     *string          `json:"currency,omitempty"`
	Status       *string          `json:"status,omitempty"`
	RefundedAt   *time.Time       `json:"refunded_at,omitempty"`
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id", h.updateOrder)
		v1.POST("/orders/:id/items", h.addItem)
		v1.PATCH("/orders/:id/items/:itemId", h.updateItem)
		v1.DELETE("/orders/:id/items/:itemId", h.removeItem)

		v1.POST("/payments", h.createPayment)
		v1.GET("/payments/:id", h.getPayment)
		v1.PATCH("/payments/:id", h.updatePayment)
		v1.DELETE("/payments/:id", h.deletePayment)

		v1.POST("/refunds", h.createRefund)
		v1.PATCH("/refunds/:id", h.updateRefund)

		v1.POST("/gift-cards", h.issueGiftCard)
		v1.GET("/gift-cards/:code", h.getGiftCard)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once every registered dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// writeError maps billing and store error kinds to HTTP status codes
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal error"

	switch {
	case errors.Is(err, billing.ErrNotFound):
		status, message = http.StatusNotFound, "Not found"
	case errors.Is(err, billing.ErrValidation):
		status, message = http.StatusBadRequest, "Validation failed"
	case errors.Is(err, billing.ErrInvalidState):
		status, message = http.StatusConflict, "Invalid state"
	case errors.Is(err, billing.ErrInsufficientFunds):
		status, message = http.StatusConflict, "Insufficient funds"
	case errors.Is(err, store.ErrConflict):
		status, message = http.StatusConflict, "Concurrent modification"
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name, nil)
		return 0, false
	}
	return id, true
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	view, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	view, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) updateOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	view, err := h.orders.UpdateOrder(c.Request.Context(), orderID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) addItem(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req service.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	view, err := h.orders.AddItem(c.Request.Context(), orderID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *Handler) updateItem(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := idParam(c, "itemId")
	if !ok {
		return
	}

	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	view, err := h.orders.UpdateItem(c.Request.Context(), orderID, lineID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) removeItem(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := idParam(c, "itemId")
	if !ok {
		return
	}

	view, err := h.orders.RemoveItem(c.Request.Context(), orderID, lineID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// createPayment honours the Idempotency-Key header
func (h *Handler) createPayment(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	payment, err := h.payments.CreatePayment(c.Request.Context(), &req, c.GetHeader("Idempotency-Key"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

func (h *Handler) getPayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (h *Handler) updatePayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	payment, err := h.payments.UpdatePayment(c.Request.Context(), id, billing.PaymentPatch{
		Amount:   req.Amount,
		PaidAt:   req.PaidAt,
		Method:   req.Method,
		Provider: req.Provider,
		Currency: req.Currency,
		Status:   req.Status,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (h *Handler) deletePayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	deleted, err := h.payments.DeletePayment(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "details": "payment " + c.Param("id")})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) createRefund(c *gin.Context) {
	var req service.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	refund, err := h.refunds.CreateRefund(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, refund)
}

func (h *Handler) updateRefund(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	refund, err := h.refunds.UpdateRefund(c.Request.Context(), id, billing.RefundPatch{
		Amount:       req.Amount,
		Reason:       req.Reason,
		RefundMethod: req.RefundMethod,
		Currency:     req.Currency,
		Status:       req.Status,
		RefundedAt:   req.RefundedAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, refund)
}

func (h *Handler) issueGiftCard(c *gin.Context) {
	var req service.IssueGiftCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	card, err := h.giftCards.IssueGiftCard(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, card)
}

func (h *Handler) getGiftCard(c *gin.Context) {
	card, err := h.giftCards.GetGiftCardByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, card)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
