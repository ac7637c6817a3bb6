package http

import (
	"errors"
	"net/http"

	"payment-service/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps the domain error taxonomy onto HTTP statuses with stable
// machine-readable codes. Provider and storage internals never leak: anything
// unrecognized becomes a generic 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var (
		validationErr  *domain.ValidationError
		unavailableErr *domain.UnavailableProductError
		stockErr       *domain.InsufficientStockError
		shippingErr    *domain.ShippingUnavailableError
		captureErr     *domain.CaptureFailedError
		railErr        *domain.ServiceUnavailableError
	)

	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"code": "forbidden", "error": err.Error()})
	case errors.Is(err, domain.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"code": "empty_cart", "error": err.Error()})
	case errors.Is(err, domain.ErrIllegalTransition):
		c.JSON(http.StatusBadRequest, gin.H{"code": "conflict", "error": err.Error()})
	case errors.Is(err, domain.ErrNotCancellable):
		c.JSON(http.StatusBadRequest, gin.H{"code": "not_cancellable", "error": err.Error()})
	case errors.Is(err, domain.ErrWebhookAuth):
		c.JSON(http.StatusUnauthorized, gin.H{"code": "invalid_signature", "error": err.Error()})
	case errors.Is(err, domain.ErrUnknownWebhookKey):
		c.JSON(http.StatusBadRequest, gin.H{"code": "unknown_payment_key", "error": err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": validationErr.Error()})
	case errors.As(err, &unavailableErr):
		c.JSON(http.StatusBadRequest, gin.H{"code": "product_unavailable", "error": unavailableErr.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{"code": "insufficient_stock", "error": stockErr.Error()})
	case errors.As(err, &shippingErr):
		c.JSON(http.StatusBadRequest, gin.H{"code": "shipping_unavailable", "error": shippingErr.Error()})
	case errors.As(err, &captureErr):
		c.JSON(http.StatusBadRequest, gin.H{"code": "capture_failed", "error": captureErr.Error()})
	case errors.As(err, &railErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":         "rail_unavailable",
			"error":        railErr.Error(),
			"alternatives": railErr.Alternatives,
		})
	default:
		log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "error": "internal error"})
	}
}
