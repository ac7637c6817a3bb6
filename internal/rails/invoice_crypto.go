package rails

import (
	"context"
	"fmt"
	"time"

	"payment-service/internal/domain"

	"go.uber.org/zap"
)

const (
	invoiceRequiredConfirmations = 10
	invoicePaymentWindow         = 24 * time.Hour
)

// Provider status vocabulary for the hosted-invoice rail.
const (
	invoiceStatusPaid               = "paid"
	invoiceStatusPartiallyConfirmed = "partially_confirmed"
	invoiceStatusUnderpaid          = "underpaid"
	invoiceStatusFailed             = "failed"
)

// InvoiceCrypto is the hosted-invoice rail. The provider owns the payment
// page and address; we track its invoice id and map its status vocabulary
// onto the shared state machine so the reconciler treats both crypto rails
// uniformly.
type InvoiceCrypto struct {
	client        *providerClient
	webhookSecret string
	log           *zap.Logger
}

type InvoiceCryptoConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Timeout       time.Duration
}

func NewInvoiceCrypto(cfg InvoiceCryptoConfig, log *zap.Logger) *InvoiceCrypto {
	return &InvoiceCrypto{
		client:        newProviderClient(cfg.BaseURL, cfg.APIKey, domain.MethodInvoiceCrypto, cfg.Timeout),
		webhookSecret: cfg.WebhookSecret,
		log:           log,
	}
}

func (a *InvoiceCrypto) Type() domain.PaymentMethod { return domain.MethodInvoiceCrypto }

type invoiceResponse struct {
	InvoiceID string `json:"invoiceId"`
	Address   string `json:"address"`
	URL       string `json:"url"`
	Rate      int64  `json:"rate"`
}

func (a *InvoiceCrypto) Initiate(ctx context.Context, order *domain.Order) (*ProviderHandle, error) {
	var out invoiceResponse
	err := a.client.postJSON(ctx, "/invoices", map[string]any{
		"reference": order.OrderNumber,
		"amount":    order.Total,
		"currency":  "GBP",
	}, &out)
	if err != nil {
		return nil, err
	}
	amount := cryptoAmountFor(order.Total, out.Rate)
	if amount <= 0 {
		return nil, fmt.Errorf("provider returned unusable rate %d", out.Rate)
	}
	expires := time.Now().UTC().Add(invoicePaymentWindow)
	a.log.Info("invoice payment initiated",
		zap.String("order_number", order.OrderNumber),
		zap.String("invoice_id", out.InvoiceID))
	return &ProviderHandle{
		InvoiceID:    out.InvoiceID,
		InvoiceURL:   out.URL,
		Address:      out.Address,
		LockedRate:   out.Rate,
		CryptoAmount: amount,
		ExpiresAt:    &expires,
	}, nil
}

// Classify maps the provider's own vocabulary onto the internal statuses,
// falling back to confirmation counting when the event carries none.
func (a *InvoiceCrypto) Classify(order *domain.Order, ev *domain.WebhookEvent) domain.PaymentStatus {
	if ev.Cancelled {
		return domain.PaymentFailed
	}
	d := order.PaymentDetails.InvoiceCrypto
	if d == nil {
		return domain.PaymentFailed
	}
	required := d.RequiredConfirmations
	if required == 0 {
		required = invoiceRequiredConfirmations
	}

	switch ev.ProviderStatus {
	case invoiceStatusFailed:
		return domain.PaymentFailed
	case invoiceStatusUnderpaid:
		return domain.PaymentUnderpaid
	case invoiceStatusPartiallyConfirmed:
		return domain.PaymentAwaitingConfirmation
	case invoiceStatusPaid:
		if ev.Confirmations >= required {
			return domain.PaymentCompleted
		}
		return domain.PaymentAwaitingConfirmation
	}

	if ev.Confirmations < required {
		return domain.PaymentAwaitingConfirmation
	}
	if ev.AmountReceived >= d.CryptoAmount {
		return domain.PaymentCompleted
	}
	return domain.PaymentUnderpaid
}

func (a *InvoiceCrypto) VerifySignature(body []byte, signature string) bool {
	return verifyHMAC(a.webhookSecret, body, signature)
}

func (a *InvoiceCrypto) Refund(ctx context.Context, order *domain.Order) (string, error) {
	d := order.PaymentDetails.InvoiceCrypto
	if d == nil || d.InvoiceID == "" {
		return "", fmt.Errorf("order %s has no invoice to refund", order.OrderNumber)
	}
	var out cryptoRefundResponse
	err := a.client.postJSON(ctx, fmt.Sprintf("/invoices/%s/refund", d.InvoiceID), nil, &out)
	if err != nil {
		return "", err
	}
	return out.RefundID, nil
}

var _ AsyncAdapter = (*InvoiceCrypto)(nil)
