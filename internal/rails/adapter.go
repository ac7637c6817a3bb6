// Package rails implements the three payment rail adapters behind one
// contract: a synchronous approve-then-capture gateway and two asynchronous
// crypto rails confirmed out-of-band by provider webhooks.
package rails

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"payment-service/internal/domain"
)

// ProviderHandle is what a rail hands back from Initiate. Fields are
// populated per rail: the gateway sets ProviderOrderID/ApprovalURL, the
// crypto rails set the receiving address, locked rate, amount and expiry.
type ProviderHandle struct {
	ProviderOrderID string     `json:"providerOrderId,omitempty"`
	ApprovalURL     string     `json:"approvalUrl,omitempty"`
	Address         string     `json:"address,omitempty"`
	InvoiceID       string     `json:"invoiceId,omitempty"`
	InvoiceURL      string     `json:"invoiceUrl,omitempty"`
	LockedRate      int64      `json:"lockedRate,omitempty"`
	CryptoAmount    int64      `json:"cryptoAmount,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

type CaptureResult struct {
	Status    string
	CaptureID string
}

type Adapter interface {
	Type() domain.PaymentMethod
	Initiate(ctx context.Context, order *domain.Order) (*ProviderHandle, error)
	// Refund asks the provider to return captured funds. The returned id is
	// recorded for audit; failures never fail the surrounding cancellation.
	Refund(ctx context.Context, order *domain.Order) (string, error)
}

// SyncAdapter is the client-driven rail: money moves during Capture.
type SyncAdapter interface {
	Adapter
	Capture(ctx context.Context, providerOrderID string) (*CaptureResult, error)
}

// AsyncAdapter rails confirm via webhooks; Classify folds a provider event
// into the shared payment status machine using the rail's thresholds.
type AsyncAdapter interface {
	Adapter
	Classify(order *domain.Order, ev *domain.WebhookEvent) domain.PaymentStatus
	VerifySignature(body []byte, signature string) bool
}

// Registry holds the adapters constructed once at startup, keyed by rail.
type Registry struct {
	adapters map[domain.PaymentMethod]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[domain.PaymentMethod]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Type()] = a
	}
	return &Registry{adapters: m}
}

func (r *Registry) Get(method domain.PaymentMethod) (Adapter, bool) {
	a, ok := r.adapters[method]
	return a, ok
}

func (r *Registry) Sync(method domain.PaymentMethod) (SyncAdapter, bool) {
	a, ok := r.adapters[method]
	if !ok {
		return nil, false
	}
	s, ok := a.(SyncAdapter)
	return s, ok
}

func (r *Registry) Async(method domain.PaymentMethod) (AsyncAdapter, bool) {
	a, ok := r.adapters[method]
	if !ok {
		return nil, false
	}
	s, ok := a.(AsyncAdapter)
	return s, ok
}

// verifyHMAC checks a hex-encoded HMAC-SHA256 of the raw webhook body.
func verifyHMAC(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// cryptoAmountFor converts a fiat total in minor units to crypto base units
// (1e8 scale) at the given rate (fiat minor units per whole coin).
func cryptoAmountFor(fiatTotal, rate int64) int64 {
	if rate <= 0 {
		return 0
	}
	return fiatTotal * 1e8 / rate
}
