package http

import "payment-service/internal/domain"

type CreateOrderRequest struct {
	OwnerKey         string         `json:"ownerKey" binding:"required"`
	ShippingAddress  domain.Address `json:"shippingAddress"`
	BillingAddress   domain.Address `json:"billingAddress"`
	ShippingMethodID string         `json:"shippingMethodId"`
	PaymentMethod    string         `json:"paymentMethod" binding:"required"`
}

type CreateOrderResponse struct {
	OrderID     uint64 `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	ApprovalURL string `json:"approvalUrl,omitempty"`
}

type CaptureRequest struct {
	ProviderOrderID string `json:"providerOrderId" binding:"required"`
}

type CancelRequest struct {
	Requester string `json:"requester" binding:"required"`
}
