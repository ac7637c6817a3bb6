package infra

import (
	"context"

	"payment-service/internal/domain"
)

type CatalogClientInterface interface {
	GetProduct(ctx context.Context, id uint64) (*ProductInfo, error)
	AdjustStock(ctx context.Context, id uint64, delta int64) error
}

type CartClientInterface interface {
	GetCart(ctx context.Context, ownerKey string) (*domain.CartSnapshot, error)
	ClearCart(ctx context.Context, ownerKey string) error
}

type ShippingClientInterface interface {
	Quote(ctx context.Context, methodID string, cart *domain.CartSnapshot, address domain.Address) (int64, error)
}

type PromotionClientInterface interface {
	Resolve(ctx context.Context, code string) (*domain.Promotion, error)
	IncrementUsage(ctx context.Context, code string) error
}

type ReferralClientInterface interface {
	Credit(ctx context.Context, ownerKey, orderNumber string, amount int64) error
}

var _ CatalogClientInterface = (*CatalogClient)(nil)
var _ CartClientInterface = (*CartClient)(nil)
var _ ShippingClientInterface = (*ShippingClient)(nil)
var _ PromotionClientInterface = (*PromotionClient)(nil)
var _ ReferralClientInterface = (*ReferralClient)(nil)
