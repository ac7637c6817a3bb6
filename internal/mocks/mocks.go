package mocks

import (
	"context"

	"payment-service/internal/domain"
	"payment-service/internal/infra"
	"payment-service/internal/rails"

	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByPaymentAddress(ctx context.Context, address string) (*domain.Order, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByProviderRef(ctx context.Context, ref string) (*domain.Order, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) Mutate(ctx context.Context, orderID uint64, eventID string, fn func(o *domain.Order) error) error {
	args := m.Called(ctx, orderID, eventID, fn)
	return args.Error(0)
}

// PassthroughExecutor runs commit functions inline, standing in for the
// transactional executor in service tests.
type PassthroughExecutor struct{}

func (PassthroughExecutor) Execute(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type MockCatalogClient struct {
	mock.Mock
}

func (m *MockCatalogClient) GetProduct(ctx context.Context, id uint64) (*infra.ProductInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infra.ProductInfo), args.Error(1)
}

func (m *MockCatalogClient) AdjustStock(ctx context.Context, id uint64, delta int64) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

type MockCartClient struct {
	mock.Mock
}

func (m *MockCartClient) GetCart(ctx context.Context, ownerKey string) (*domain.CartSnapshot, error) {
	args := m.Called(ctx, ownerKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartSnapshot), args.Error(1)
}

func (m *MockCartClient) ClearCart(ctx context.Context, ownerKey string) error {
	args := m.Called(ctx, ownerKey)
	return args.Error(0)
}

type MockShippingClient struct {
	mock.Mock
}

func (m *MockShippingClient) Quote(ctx context.Context, methodID string, cart *domain.CartSnapshot, address domain.Address) (int64, error) {
	args := m.Called(ctx, methodID, cart, address)
	return args.Get(0).(int64), args.Error(1)
}

type MockPromotionClient struct {
	mock.Mock
}

func (m *MockPromotionClient) Resolve(ctx context.Context, code string) (*domain.Promotion, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Promotion), args.Error(1)
}

func (m *MockPromotionClient) IncrementUsage(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

type MockReferralClient struct {
	mock.Mock
}

func (m *MockReferralClient) Credit(ctx context.Context, ownerKey, orderNumber string, amount int64) error {
	args := m.Called(ctx, ownerKey, orderNumber, amount)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	args := m.Called(ctx, routingKey, data)
	return args.Error(0)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) DispatchCompleted(ctx context.Context, order *domain.Order) {
	m.Called(ctx, order)
}

func (m *MockDispatcher) DispatchCancelled(ctx context.Context, order *domain.Order, refunded bool) {
	m.Called(ctx, order, refunded)
}

type MockSyncAdapter struct {
	mock.Mock
	Rail domain.PaymentMethod
}

func (m *MockSyncAdapter) Type() domain.PaymentMethod { return m.Rail }

func (m *MockSyncAdapter) Initiate(ctx context.Context, order *domain.Order) (*rails.ProviderHandle, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rails.ProviderHandle), args.Error(1)
}

func (m *MockSyncAdapter) Capture(ctx context.Context, providerOrderID string) (*rails.CaptureResult, error) {
	args := m.Called(ctx, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rails.CaptureResult), args.Error(1)
}

func (m *MockSyncAdapter) Refund(ctx context.Context, order *domain.Order) (string, error) {
	args := m.Called(ctx, order)
	return args.String(0), args.Error(1)
}

type MockAsyncAdapter struct {
	mock.Mock
	Rail domain.PaymentMethod
}

func (m *MockAsyncAdapter) Type() domain.PaymentMethod { return m.Rail }

func (m *MockAsyncAdapter) Initiate(ctx context.Context, order *domain.Order) (*rails.ProviderHandle, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rails.ProviderHandle), args.Error(1)
}

func (m *MockAsyncAdapter) Classify(order *domain.Order, ev *domain.WebhookEvent) domain.PaymentStatus {
	args := m.Called(order, ev)
	return args.Get(0).(domain.PaymentStatus)
}

func (m *MockAsyncAdapter) VerifySignature(body []byte, signature string) bool {
	args := m.Called(body, signature)
	return args.Bool(0)
}

func (m *MockAsyncAdapter) Refund(ctx context.Context, order *domain.Order) (string, error) {
	args := m.Called(ctx, order)
	return args.String(0), args.Error(1)
}
