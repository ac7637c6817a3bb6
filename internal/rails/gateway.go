package rails

import (
	"context"
	"fmt"
	"time"

	"payment-service/internal/domain"

	"go.uber.org/zap"
)

const captureCompleted = "COMPLETED"

// Gateway is the synchronous approve-then-capture rail. Initiate creates a
// provider order and returns the approval URL the buyer is redirected to;
// money only moves when the client triggers Capture after the redirect.
type Gateway struct {
	client *providerClient
	log    *zap.Logger
}

type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewGateway(cfg GatewayConfig, log *zap.Logger) *Gateway {
	return &Gateway{
		client: newProviderClient(cfg.BaseURL, cfg.APIKey, domain.MethodGateway, cfg.Timeout),
		log:    log,
	}
}

func (g *Gateway) Type() domain.PaymentMethod { return domain.MethodGateway }

type gatewayOrderRequest struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type gatewayOrderResponse struct {
	ID          string `json:"id"`
	ApprovalURL string `json:"approvalUrl"`
}

func (g *Gateway) Initiate(ctx context.Context, order *domain.Order) (*ProviderHandle, error) {
	var out gatewayOrderResponse
	err := g.client.postJSON(ctx, "/v2/checkout/orders", gatewayOrderRequest{
		Reference: order.OrderNumber,
		Amount:    order.Total,
		Currency:  "GBP",
	}, &out)
	if err != nil {
		return nil, err
	}
	g.log.Info("gateway order created",
		zap.String("order_number", order.OrderNumber),
		zap.String("provider_order_id", out.ID))
	return &ProviderHandle{
		ProviderOrderID: out.ID,
		ApprovalURL:     out.ApprovalURL,
	}, nil
}

type gatewayCaptureResponse struct {
	Status    string `json:"status"`
	CaptureID string `json:"captureId"`
}

func (g *Gateway) Capture(ctx context.Context, providerOrderID string) (*CaptureResult, error) {
	var out gatewayCaptureResponse
	err := g.client.postJSON(ctx, fmt.Sprintf("/v2/checkout/orders/%s/capture", providerOrderID), nil, &out)
	if err != nil {
		return nil, err
	}
	if out.Status != captureCompleted {
		return nil, &domain.CaptureFailedError{ProviderStatus: out.Status}
	}
	return &CaptureResult{Status: out.Status, CaptureID: out.CaptureID}, nil
}

type gatewayRefundResponse struct {
	ID string `json:"id"`
}

func (g *Gateway) Refund(ctx context.Context, order *domain.Order) (string, error) {
	details := order.PaymentDetails.Gateway
	if details == nil || details.CaptureID == "" {
		return "", fmt.Errorf("order %s has no capture to refund", order.OrderNumber)
	}
	var out gatewayRefundResponse
	err := g.client.postJSON(ctx, fmt.Sprintf("/v2/payments/captures/%s/refund", details.CaptureID), nil, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

var _ SyncAdapter = (*Gateway)(nil)
