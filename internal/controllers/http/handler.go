package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"payment-service/internal/domain"
	"payment-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const paymentStatusCacheTTL = 5 * time.Second

type Handler struct {
	orders   *services.OrderService
	webhooks *services.WebhookService
	rdb      *redis.Client
	log      *zap.Logger
}

func NewHandler(orders *services.OrderService, webhooks *services.WebhookService, rdb *redis.Client, log *zap.Logger) *Handler {
	return &Handler{orders: orders, webhooks: webhooks, rdb: rdb, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders/:id", h.GetOrder)
	r.POST("/orders/:id/capture", h.CaptureOrder)
	r.POST("/orders/:id/payment", h.InitiateAsyncPayment)
	r.GET("/orders/:id/payment", h.GetPaymentStatus)
	r.POST("/orders/:id/cancel", h.CancelOrder)
	r.POST("/webhooks/:rail", h.Webhook)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}

	order, handle, err := h.orders.CreateOrder(c.Request.Context(), services.CreateOrderInput{
		OwnerKey:         req.OwnerKey,
		ShippingAddress:  req.ShippingAddress,
		BillingAddress:   req.BillingAddress,
		ShippingMethodID: req.ShippingMethodID,
		PaymentMethod:    domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := CreateOrderResponse{OrderID: order.ID, OrderNumber: order.OrderNumber}
	if handle != nil {
		resp.ApprovalURL = handle.ApprovalURL
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	order, err := h.orders.GetOrderById(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) CaptureOrder(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}

	order, err := h.orders.CaptureOrder(c.Request.Context(), id, req.ProviderOrderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.invalidateStatusCache(order.ID)
	c.JSON(http.StatusOK, gin.H{"orderId": order.ID, "status": "captured"})
}

func (h *Handler) InitiateAsyncPayment(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	handle, err := h.orders.InitiateAsyncPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, handle)
}

func (h *Handler) GetPaymentStatus(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	cacheKey := statusCacheKey(id)
	if h.rdb != nil {
		if b, err := h.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var view services.PaymentStatusView
			if json.Unmarshal([]byte(b), &view) == nil {
				c.JSON(http.StatusOK, view)
				return
			}
		}
	}

	view, err := h.orders.GetPaymentStatus(ctx, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if h.rdb != nil {
		if data, err := json.Marshal(view); err == nil {
			h.rdb.Set(ctx, cacheKey, data, paymentStatusCacheTTL)
		}
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}

	result, err := h.orders.CancelOrder(c.Request.Context(), id, req.Requester)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.invalidateStatusCache(id)
	resp := gin.H{"status": "cancelled"}
	if result.RefundID != "" {
		resp["refund"] = result.RefundID
	}
	c.JSON(http.StatusOK, resp)
}

// Webhook ingests provider events. The signature covers the raw body, so the
// payload is read before any binding.
func (h *Handler) Webhook(c *gin.Context) {
	rail := domain.PaymentMethod(c.Param("rail"))
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "unreadable body"})
		return
	}
	signature := c.GetHeader("X-Signature")

	if err := h.webhooks.Process(c.Request.Context(), rail, body, signature); err != nil {
		respondError(c, h.log, err)
		return
	}

	// Drop any cached status so polls see the transition immediately.
	var probe struct {
		InvoiceID string `json:"invoiceId"`
		Address   string `json:"address"`
	}
	_ = json.Unmarshal(body, &probe)
	h.invalidateStatusCacheByKey(c.Request.Context(), rail, probe.Address, probe.InvoiceID)

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) orderID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "invalid order id"})
		return 0, false
	}
	return id, true
}

func statusCacheKey(orderID uint64) string {
	return "payment-status:" + strconv.FormatUint(orderID, 10)
}

func (h *Handler) invalidateStatusCache(orderID uint64) {
	if h.rdb != nil {
		h.rdb.Del(context.Background(), statusCacheKey(orderID))
	}
}

func (h *Handler) invalidateStatusCacheByKey(ctx context.Context, rail domain.PaymentMethod, address, invoiceID string) {
	if h.rdb == nil {
		return
	}
	order, err := h.orders.FindByWebhookKey(ctx, rail, address, invoiceID)
	if err != nil || order == nil {
		return
	}
	h.rdb.Del(ctx, statusCacheKey(order.ID))
}
