package rails

import (
	"context"
	"fmt"
	"time"

	"payment-service/internal/domain"

	"go.uber.org/zap"
)

const (
	addressRequiredConfirmations = 2
	addressPaymentWindow         = 24 * time.Hour

	// Underpayment tolerance in basis points: a transfer within 1% of the
	// locked amount still settles the order (network fee rounding).
	underpayToleranceBps = 100
)

// AddressCrypto is the direct-address rail: Initiate obtains a fresh
// receiving address with a rate locked for the payment window, and the chain
// watcher reports deposits through webhooks.
type AddressCrypto struct {
	client        *providerClient
	webhookSecret string
	log           *zap.Logger
}

type AddressCryptoConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Timeout       time.Duration
}

func NewAddressCrypto(cfg AddressCryptoConfig, log *zap.Logger) *AddressCrypto {
	return &AddressCrypto{
		client:        newProviderClient(cfg.BaseURL, cfg.APIKey, domain.MethodAddressCrypto, cfg.Timeout),
		webhookSecret: cfg.WebhookSecret,
		log:           log,
	}
}

func (a *AddressCrypto) Type() domain.PaymentMethod { return domain.MethodAddressCrypto }

type addressResponse struct {
	Address string `json:"address"`
	Rate    int64  `json:"rate"`
}

func (a *AddressCrypto) Initiate(ctx context.Context, order *domain.Order) (*ProviderHandle, error) {
	var out addressResponse
	err := a.client.postJSON(ctx, "/addresses", map[string]string{
		"reference": order.OrderNumber,
	}, &out)
	if err != nil {
		return nil, err
	}
	amount := cryptoAmountFor(order.Total, out.Rate)
	if amount <= 0 {
		return nil, fmt.Errorf("provider returned unusable rate %d", out.Rate)
	}
	expires := time.Now().UTC().Add(addressPaymentWindow)
	a.log.Info("address payment initiated",
		zap.String("order_number", order.OrderNumber),
		zap.String("address", out.Address),
		zap.Int64("crypto_amount", amount))
	return &ProviderHandle{
		Address:      out.Address,
		LockedRate:   out.Rate,
		CryptoAmount: amount,
		ExpiresAt:    &expires,
	}, nil
}

// Classify folds a chain event into the payment state machine. Expiry is
// decided by the reconciler before this is consulted.
func (a *AddressCrypto) Classify(order *domain.Order, ev *domain.WebhookEvent) domain.PaymentStatus {
	if ev.Cancelled {
		return domain.PaymentFailed
	}
	d := order.PaymentDetails.AddressCrypto
	if d == nil {
		return domain.PaymentFailed
	}
	required := d.RequiredConfirmations
	if required == 0 {
		required = addressRequiredConfirmations
	}
	if ev.Confirmations < required {
		return domain.PaymentAwaitingConfirmation
	}
	threshold := d.CryptoAmount - d.CryptoAmount*underpayToleranceBps/10000
	if ev.AmountReceived >= threshold {
		return domain.PaymentCompleted
	}
	return domain.PaymentUnderpaid
}

func (a *AddressCrypto) VerifySignature(body []byte, signature string) bool {
	return verifyHMAC(a.webhookSecret, body, signature)
}

type cryptoRefundResponse struct {
	RefundID string `json:"refundId"`
}

func (a *AddressCrypto) Refund(ctx context.Context, order *domain.Order) (string, error) {
	d := order.PaymentDetails.AddressCrypto
	if d == nil || d.AmountReceived == 0 {
		return "", fmt.Errorf("order %s received no funds to refund", order.OrderNumber)
	}
	var out cryptoRefundResponse
	err := a.client.postJSON(ctx, "/refunds", map[string]any{
		"address": d.Address,
		"amount":  d.AmountReceived,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.RefundID, nil
}

var _ AsyncAdapter = (*AddressCrypto)(nil)
