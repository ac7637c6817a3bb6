package repository

import (
	"context"

	"payment-service/internal/domain"
)

// OrderRepository persists orders and serializes per-order payment mutations.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uint64) (*domain.Order, error)
	FindByPaymentAddress(ctx context.Context, address string) (*domain.Order, error)
	FindByProviderRef(ctx context.Context, ref string) (*domain.Order, error)

	// Mutate runs fn against a row-locked copy of the order inside a
	// transaction and persists the result together with any history rows fn
	// appended. When eventID is non-empty it is recorded in the processed
	// webhook ledger in the same transaction; a duplicate eventID aborts
	// with domain.ErrDuplicateEvent before fn runs.
	Mutate(ctx context.Context, orderID uint64, eventID string, fn func(o *domain.Order) error) error
}
