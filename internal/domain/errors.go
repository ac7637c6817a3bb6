package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition = errors.New("illegal payment status transition")
	ErrDuplicateEvent    = errors.New("webhook event already processed")
	ErrWebhookAuth       = errors.New("webhook signature verification failed")
	ErrUnknownWebhookKey = errors.New("webhook does not resolve to any order")
	ErrForbidden         = errors.New("requester does not own this order")
	ErrNotCancellable    = errors.New("order can no longer be cancelled")
)

// ValidationError covers malformed or incomplete checkout input.
type ValidationError struct {
	Msg string
}

func NewValidationError(msg string) *ValidationError { return &ValidationError{Msg: msg} }

func (e *ValidationError) Error() string { return e.Msg }

type UnavailableProductError struct {
	ProductID uint64
}

func (e *UnavailableProductError) Error() string {
	return fmt.Sprintf("product %d is unavailable", e.ProductID)
}

type InsufficientStockError struct {
	ProductID uint64
	Requested int
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %d: requested %d, only %d in stock", e.ProductID, e.Requested, e.Available)
}

type ShippingUnavailableError struct {
	MethodID string
	Reason   string
}

func (e *ShippingUnavailableError) Error() string {
	return fmt.Sprintf("shipping method %s unavailable: %s", e.MethodID, e.Reason)
}

// CaptureFailedError is returned when the gateway declines a capture. The
// order stays pending; the client may retry or switch rails.
type CaptureFailedError struct {
	ProviderStatus string
}

func (e *CaptureFailedError) Error() string {
	return fmt.Sprintf("capture was not completed, provider status %q", e.ProviderStatus)
}

// ServiceUnavailableError signals that a payment provider was unreachable or
// timed out at initiate/capture. Alternatives lists rails the caller can be
// offered instead.
type ServiceUnavailableError struct {
	Rail         PaymentMethod
	Alternatives []PaymentMethod
	Cause        error
}

func NewServiceUnavailable(rail PaymentMethod, cause error) *ServiceUnavailableError {
	alts := make([]PaymentMethod, 0, 2)
	for _, m := range []PaymentMethod{MethodGateway, MethodAddressCrypto, MethodInvoiceCrypto} {
		if m != rail {
			alts = append(alts, m)
		}
	}
	return &ServiceUnavailableError{Rail: rail, Alternatives: alts, Cause: cause}
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("payment rail %s is unavailable", e.Rail)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Cause }
