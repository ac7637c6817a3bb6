package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"payment-service/internal/domain"
	"payment-service/internal/mocks"
	"payment-service/internal/rails"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type orderServiceMocks struct {
	repo       *mocks.MockOrderRepository
	catalog    *mocks.MockCatalogClient
	cart       *mocks.MockCartClient
	shipping   *mocks.MockShippingClient
	promos     *mocks.MockPromotionClient
	gateway    *mocks.MockSyncAdapter
	address    *mocks.MockAsyncAdapter
	invoice    *mocks.MockAsyncAdapter
	dispatcher *mocks.MockDispatcher
}

func newTestOrderService(cfg Config) (*OrderService, *orderServiceMocks) {
	m := &orderServiceMocks{
		repo:       new(mocks.MockOrderRepository),
		catalog:    new(mocks.MockCatalogClient),
		cart:       new(mocks.MockCartClient),
		shipping:   new(mocks.MockShippingClient),
		promos:     new(mocks.MockPromotionClient),
		gateway:    &mocks.MockSyncAdapter{Rail: domain.MethodGateway},
		address:    &mocks.MockAsyncAdapter{Rail: domain.MethodAddressCrypto},
		invoice:    &mocks.MockAsyncAdapter{Rail: domain.MethodInvoiceCrypto},
		dispatcher: new(mocks.MockDispatcher),
	}
	registry := rails.NewRegistry(m.gateway, m.address, m.invoice)
	svc := NewOrderService(
		m.repo, mocks.PassthroughExecutor{}, m.catalog, m.cart, m.shipping,
		m.promos, registry, m.dispatcher, cfg, zap.NewNop(),
	)
	return svc, m
}

func validInput(method domain.PaymentMethod) CreateOrderInput {
	return CreateOrderInput{
		OwnerKey:         TestOwnerKey,
		ShippingAddress:  testAddress(),
		ShippingMethodID: TestMethodID,
		PaymentMethod:    method,
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	tests := []struct {
		name          string
		input         CreateOrderInput
		cfg           Config
		setupMocks    func(m *orderServiceMocks)
		expectedError string
		check         func(t *testing.T, order *domain.Order, handle *rails.ProviderHandle)
	}{
		{
			name: "missing shipping address",
			input: CreateOrderInput{
				OwnerKey:         TestOwnerKey,
				ShippingMethodID: TestMethodID,
				PaymentMethod:    domain.MethodGateway,
			},
			setupMocks:    func(m *orderServiceMocks) {},
			expectedError: "shipping address is required",
		},
		{
			name: "missing shipping method",
			input: CreateOrderInput{
				OwnerKey:        TestOwnerKey,
				ShippingAddress: testAddress(),
				PaymentMethod:   domain.MethodGateway,
			},
			setupMocks:    func(m *orderServiceMocks) {},
			expectedError: "shipping method is required",
		},
		{
			name: "unknown payment method",
			input: CreateOrderInput{
				OwnerKey:         TestOwnerKey,
				ShippingAddress:  testAddress(),
				ShippingMethodID: TestMethodID,
				PaymentMethod:    domain.PaymentMethod("cheque"),
			},
			setupMocks:    func(m *orderServiceMocks) {},
			expectedError: "unknown payment method",
		},
		{
			name:  "empty cart",
			input: validInput(domain.MethodGateway),
			setupMocks: func(m *orderServiceMocks) {
				m.cart.On("GetCart", mock.Anything, TestOwnerKey).
					Return(&domain.CartSnapshot{OwnerKey: TestOwnerKey}, nil)
			},
			expectedError: "cart is empty",
		},
		{
			name:  "inactive product",
			input: validInput(domain.MethodGateway),
			setupMocks: func(m *orderServiceMocks) {
				m.cart.On("GetCart", mock.Anything, TestOwnerKey).Return(testCart(), nil)
				prod := testProduct(10000, 5)
				prod.IsActive = false
				m.catalog.On("GetProduct", mock.Anything, TestProductID).Return(prod, nil)
			},
			expectedError: "unavailable",
		},
		{
			name:  "insufficient stock",
			input: validInput(domain.MethodGateway),
			setupMocks: func(m *orderServiceMocks) {
				cart := testCart(domain.CartItem{
					ProductID: TestProductID, Name: "Test Product",
					UnitPrice: 10000, Quantity: 3, Subtotal: 30000,
				})
				m.cart.On("GetCart", mock.Anything, TestOwnerKey).Return(cart, nil)
				m.catalog.On("GetProduct", mock.Anything, TestProductID).Return(testProduct(10000, 2), nil)
			},
			expectedError: "in stock",
		},
		{
			name:  "shipping method rejects destination",
			input: validInput(domain.MethodGateway),
			setupMocks: func(m *orderServiceMocks) {
				m.cart.On("GetCart", mock.Anything, TestOwnerKey).Return(testCart(), nil)
				m.catalog.On("GetProduct", mock.Anything, TestProductID).Return(testProduct(10000, 5), nil)
				m.shipping.On("Quote", mock.Anything, TestMethodID, mock.Anything, mock.Anything).
					Return(int64(0), &domain.ShippingUnavailableError{MethodID: TestMethodID, Reason: "no coverage"})
			},
			expectedError: "unavailable",
		},
		{
			name:  "gateway happy path returns approval url",
			input: validInput(domain.MethodGateway),
			setupMocks: func(m *orderServiceMocks) {
				m.cart.On("GetCart", mock.Anything, TestOwnerKey).Return(testCart(), nil)
				m.catalog.On("GetProduct", mock.Anything, TestProductID).Return(testProduct(10000, 5), nil)
				m.shipping.On("Quote", mock.Anything, TestMethodID, mock.Anything, mock.Anything).
					Return(int64(1000), nil)
				m.gateway.On("Initiate", mock.Anything, mock.AnythingOfType("*domain.Order")).
					Return(&rails.ProviderHandle{ProviderOrderID: "PG-1", ApprovalURL: "https://gateway/approve/PG-1"}, nil)
				m.catalog.On("AdjustStock", mock.Anything, TestProductID, int64(-1)).Return(nil)
				m.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).
					Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Order).ID = 1
				})
				m.cart.On("ClearCart", mock.Anything, TestOwnerKey).Return(nil)
			},
			check: func(t *testing.T, order *domain.Order, handle *rails.ProviderHandle) {
				assert.Equal(t, int64(11000), order.Total)
				assert.Equal(t, domain.PaymentPending, order.PaymentStatus)
				assert.Equal(t, "PG-1", order.PaymentDetails.Gateway.ProviderOrderID)
				assert.Equal(t, "https://gateway/approve/PG-1", handle.ApprovalURL)
			},
		},
		{
			name:  "gateway provider down surfaces 503 and persists nothing",
			input: validInput(domain.MethodGateway),
			setupMocks: func(m *orderServiceMocks) {
				m.cart.On("GetCart", mock.Anything, TestOwnerKey).Return(testCart(), nil)
				m.catalog.On("GetProduct", mock.Anything, TestProductID).Return(testProduct(10000, 5), nil)
				m.shipping.On("Quote", mock.Anything, TestMethodID, mock.Anything, mock.Anything).
					Return(int64(1000), nil)
				m.gateway.On("Initiate", mock.Anything, mock.AnythingOfType("*domain.Order")).
					Return(nil, domain.NewServiceUnavailable(domain.MethodGateway, errors.New("timeout")))
			},
			expectedError: "unavailable",
		},
		{
			name:  "async rail order committed without provider handle",
			input: validInput(domain.MethodAddressCrypto),
			setupMocks: func(m *orderServiceMocks) {
				m.cart.On("GetCart", mock.Anything, TestOwnerKey).Return(testCart(), nil)
				m.catalog.On("GetProduct", mock.Anything, TestProductID).Return(testProduct(10000, 5), nil)
				m.shipping.On("Quote", mock.Anything, TestMethodID, mock.Anything, mock.Anything).
					Return(int64(1000), nil)
				m.catalog.On("AdjustStock", mock.Anything, TestProductID, int64(-1)).Return(nil)
				m.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).
					Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Order).ID = 2
				})
				m.cart.On("ClearCart", mock.Anything, TestOwnerKey).Return(nil)
			},
			check: func(t *testing.T, order *domain.Order, handle *rails.ProviderHandle) {
				assert.Nil(t, handle)
				assert.Equal(t, domain.MethodAddressCrypto, order.PaymentMethod)
			},
		},
		{
			name:  "stock decrement conflict restores earlier decrements",
			input: validInput(domain.MethodAddressCrypto),
			setupMocks: func(m *orderServiceMocks) {
				cart := testCart(
					domain.CartItem{ProductID: 1, Name: "A", UnitPrice: 1000, Quantity: 1, Subtotal: 1000},
					domain.CartItem{ProductID: 2, Name: "B", UnitPrice: 2000, Quantity: 1, Subtotal: 2000},
				)
				m.cart.On("GetCart", mock.Anything, TestOwnerKey).Return(cart, nil)
				m.catalog.On("GetProduct", mock.Anything, uint64(1)).Return(testProduct(1000, 5), nil)
				prod2 := testProduct(2000, 5)
				prod2.ID = 2
				m.catalog.On("GetProduct", mock.Anything, uint64(2)).Return(prod2, nil)
				m.shipping.On("Quote", mock.Anything, TestMethodID, mock.Anything, mock.Anything).
					Return(int64(500), nil)
				m.catalog.On("AdjustStock", mock.Anything, uint64(1), int64(-1)).Return(nil)
				m.catalog.On("AdjustStock", mock.Anything, uint64(2), int64(-1)).
					Return(&domain.InsufficientStockError{ProductID: 2, Requested: 1})
				m.catalog.On("AdjustStock", mock.Anything, uint64(1), int64(1)).Return(nil)
			},
			expectedError: "in stock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestOrderService(tt.cfg)
			tt.setupMocks(m)

			order, handle, err := svc.CreateOrder(context.Background(), tt.input)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, order)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, order)
				if tt.check != nil {
					tt.check(t, order, handle)
				}
			}
			m.repo.AssertExpectations(t)
			m.catalog.AssertExpectations(t)
			m.cart.AssertExpectations(t)
		})
	}
}

func TestOrderService_CreateOrder_Promotions(t *testing.T) {
	cartWithPromo := func(code string) *domain.CartSnapshot {
		c := testCart(domain.CartItem{
			ProductID: TestProductID, Name: "Test Product",
			UnitPrice: 10000, Quantity: 2, Subtotal: 20000,
		})
		c.PromoCode = code
		return c
	}

	tests := []struct {
		name             string
		cfg              Config
		promo            *domain.Promotion
		promoErr         error
		expectedError    string
		expectedDiscount int64
		expectedShipping int64
		expectUsageTouch bool
	}{
		{
			name:             "percentage discount",
			promo:            &domain.Promotion{Code: "TEN", Type: domain.PromoPercentage, Value: 10, Active: true},
			expectedDiscount: 2000,
			expectedShipping: 1000,
			expectUsageTouch: true,
		},
		{
			name:             "fixed amount capped at applicable subtotal",
			promo:            &domain.Promotion{Code: "BIG", Type: domain.PromoFixedAmount, Value: 50000, Active: true},
			expectedDiscount: 20000,
			expectedShipping: 1000,
			expectUsageTouch: true,
		},
		{
			name:             "free shipping zeroes shipping cost",
			promo:            &domain.Promotion{Code: "SHIP", Type: domain.PromoFreeShipping, Active: true},
			expectedDiscount: 0,
			expectedShipping: 0,
			expectUsageTouch: true,
		},
		{
			name:          "subtotal below promotion minimum",
			promo:         &domain.Promotion{Code: "MIN", Type: domain.PromoPercentage, Value: 10, MinSubtotal: 50000, Active: true},
			expectedError: "below promotion minimum",
		},
		{
			name:             "lookup failure proceeds without discount when fail-open",
			cfg:              Config{PromoFailOpen: true},
			promoErr:         errors.New("promotion service down"),
			expectedDiscount: 0,
			expectedShipping: 1000,
		},
		{
			name:          "lookup failure fails checkout when fail-closed",
			promoErr:      errors.New("promotion service down"),
			expectedError: "promotion service down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestOrderService(tt.cfg)

			m.cart.On("GetCart", mock.Anything, TestOwnerKey).Return(cartWithPromo("CODE"), nil)
			m.catalog.On("GetProduct", mock.Anything, TestProductID).Return(testProduct(10000, 10), nil)
			m.shipping.On("Quote", mock.Anything, TestMethodID, mock.Anything, mock.Anything).
				Return(int64(1000), nil)
			if tt.promoErr != nil {
				m.promos.On("Resolve", mock.Anything, "CODE").Return(nil, tt.promoErr)
			} else {
				m.promos.On("Resolve", mock.Anything, "CODE").Return(tt.promo, nil)
			}
			if tt.expectedError == "" {
				m.catalog.On("AdjustStock", mock.Anything, TestProductID, int64(-2)).Return(nil)
				m.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).
					Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Order).ID = 7
				})
				m.cart.On("ClearCart", mock.Anything, TestOwnerKey).Return(nil)
				if tt.expectUsageTouch {
					m.promos.On("IncrementUsage", mock.Anything, tt.promo.Code).Return(nil)
				}
			}

			order, _, err := svc.CreateOrder(context.Background(), validInput(domain.MethodAddressCrypto))

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedDiscount, order.Discount)
			assert.Equal(t, tt.expectedShipping, order.ShippingCost)
			// Conservation: items + shipping - discount == total.
			var itemTotal int64
			for _, it := range order.Items {
				itemTotal += it.Subtotal
			}
			assert.Equal(t, itemTotal+order.ShippingCost-order.Discount, order.Total)
			m.promos.AssertExpectations(t)
		})
	}
}

func TestOrderService_CaptureOrder(t *testing.T) {
	pendingGatewayOrder := func() *domain.Order {
		return &domain.Order{
			ID:            1,
			OrderNumber:   "ord-gw-1",
			OwnerKey:      TestOwnerKey,
			PaymentMethod: domain.MethodGateway,
			PaymentStatus: domain.PaymentPending,
			Total:         11000,
			PaymentDetails: domain.PaymentDetails{
				Gateway: &domain.GatewayDetails{ProviderOrderID: "PG-1", ApprovalURL: "https://gateway/approve/PG-1"},
			},
			FulfillmentStatus: domain.FulfillmentPending,
		}
	}

	t.Run("successful capture completes the order", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		order := pendingGatewayOrder()

		m.repo.On("FindByID", mock.Anything, uint64(1)).Return(order, nil)
		m.gateway.On("Capture", mock.Anything, "PG-1").
			Return(&rails.CaptureResult{Status: "COMPLETED", CaptureID: "CAP-9"}, nil)
		m.repo.On("Mutate", mock.Anything, uint64(1), "", mock.Anything).
			Return(nil).Run(func(args mock.Arguments) {
			fn := args.Get(3).(func(*domain.Order) error)
			assert.NoError(t, fn(order))
		})
		dispatched := make(chan struct{})
		m.dispatcher.On("DispatchCompleted", mock.Anything, mock.AnythingOfType("*domain.Order")).
			Run(func(mock.Arguments) { close(dispatched) })

		captured, err := svc.CaptureOrder(context.Background(), 1, "PG-1")

		assert.NoError(t, err)
		assert.Equal(t, domain.PaymentCompleted, captured.PaymentStatus)
		assert.Equal(t, "CAP-9", captured.PaymentDetails.Gateway.CaptureID)

		select {
		case <-dispatched:
		case <-time.After(time.Second):
			t.Fatal("completion dispatch never fired")
		}
	})

	t.Run("declined capture keeps the order pending", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		order := pendingGatewayOrder()

		m.repo.On("FindByID", mock.Anything, uint64(1)).Return(order, nil)
		m.gateway.On("Capture", mock.Anything, "PG-1").
			Return(nil, &domain.CaptureFailedError{ProviderStatus: "DECLINED"})

		_, err := svc.CaptureOrder(context.Background(), 1, "PG-1")

		var captureErr *domain.CaptureFailedError
		assert.ErrorAs(t, err, &captureErr)
		assert.Equal(t, domain.PaymentPending, order.PaymentStatus)
		m.dispatcher.AssertNotCalled(t, "DispatchCompleted", mock.Anything, mock.Anything)
	})

	t.Run("re-capturing a completed order is a conflict", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		order := pendingGatewayOrder()
		order.PaymentStatus = domain.PaymentCompleted

		m.repo.On("FindByID", mock.Anything, uint64(1)).Return(order, nil)

		_, err := svc.CaptureOrder(context.Background(), 1, "PG-1")
		assert.ErrorIs(t, err, domain.ErrIllegalTransition)
		m.gateway.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)
	})

	t.Run("mismatched provider order id", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		m.repo.On("FindByID", mock.Anything, uint64(1)).Return(pendingGatewayOrder(), nil)

		_, err := svc.CaptureOrder(context.Background(), 1, "PG-other")
		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("unknown order", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		m.repo.On("FindByID", mock.Anything, uint64(99)).Return(nil, nil)

		_, err := svc.CaptureOrder(context.Background(), 99, "PG-1")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestOrderService_InitiateAsyncPayment(t *testing.T) {
	t.Run("address rail locks rate and expiry", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		order := &domain.Order{
			ID:            3,
			OrderNumber:   "ord-addr-3",
			OwnerKey:      TestOwnerKey,
			PaymentMethod: domain.MethodAddressCrypto,
			PaymentStatus: domain.PaymentPending,
			Total:         11000,
		}
		expires := time.Now().UTC().Add(24 * time.Hour)
		m.repo.On("FindByID", mock.Anything, uint64(3)).Return(order, nil)
		m.address.On("Initiate", mock.Anything, order).Return(&rails.ProviderHandle{
			Address:      "bc1qfresh",
			LockedRate:   5_500_000,
			CryptoAmount: 200_000,
			ExpiresAt:    &expires,
		}, nil)
		m.repo.On("Mutate", mock.Anything, uint64(3), "", mock.Anything).
			Return(nil).Run(func(args mock.Arguments) {
			fn := args.Get(3).(func(*domain.Order) error)
			assert.NoError(t, fn(order))
		})

		handle, err := svc.InitiateAsyncPayment(context.Background(), 3)

		assert.NoError(t, err)
		assert.Equal(t, "bc1qfresh", handle.Address)
		assert.Equal(t, "bc1qfresh", order.PaymentAddress)
		assert.Equal(t, 2, order.PaymentDetails.AddressCrypto.RequiredConfirmations)
		assert.Equal(t, &expires, order.ExpiresAt)
	})

	t.Run("invoice rail records invoice id for webhook resolution", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		order := &domain.Order{
			ID:            4,
			OrderNumber:   "ord-inv-4",
			OwnerKey:      TestOwnerKey,
			PaymentMethod: domain.MethodInvoiceCrypto,
			PaymentStatus: domain.PaymentPending,
			Total:         11000,
		}
		expires := time.Now().UTC().Add(24 * time.Hour)
		m.repo.On("FindByID", mock.Anything, uint64(4)).Return(order, nil)
		m.invoice.On("Initiate", mock.Anything, order).Return(&rails.ProviderHandle{
			InvoiceID:    "inv-555",
			InvoiceURL:   "https://invoices/inv-555",
			Address:      "4Ahosted",
			LockedRate:   12_000_000,
			CryptoAmount: 91_666,
			ExpiresAt:    &expires,
		}, nil)
		m.repo.On("Mutate", mock.Anything, uint64(4), "", mock.Anything).
			Return(nil).Run(func(args mock.Arguments) {
			fn := args.Get(3).(func(*domain.Order) error)
			assert.NoError(t, fn(order))
		})

		_, err := svc.InitiateAsyncPayment(context.Background(), 4)

		assert.NoError(t, err)
		assert.Equal(t, "inv-555", order.ProviderRef)
		assert.Equal(t, 10, order.PaymentDetails.InvoiceCrypto.RequiredConfirmations)
	})

	t.Run("gateway order rejected", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		order := &domain.Order{
			ID: 5, PaymentMethod: domain.MethodGateway, PaymentStatus: domain.PaymentPending,
		}
		m.repo.On("FindByID", mock.Anything, uint64(5)).Return(order, nil)

		_, err := svc.InitiateAsyncPayment(context.Background(), 5)
		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestOrderService_GetPaymentStatus(t *testing.T) {
	t.Run("expiry wins over provider confirmations", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		// Window closed an hour ago but the provider reported confirmations.
		order := testInvoiceCryptoOrder(6, domain.PaymentAwaitingConfirmation, time.Now().UTC().Add(-time.Hour))
		order.PaymentDetails.InvoiceCrypto.Confirmations = 12
		m.repo.On("FindByID", mock.Anything, uint64(6)).Return(order, nil)

		view, err := svc.GetPaymentStatus(context.Background(), 6)

		assert.NoError(t, err)
		assert.True(t, view.IsExpired)
		assert.Equal(t, 12, view.Confirmations)
	})

	t.Run("pending order with no details", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		order := &domain.Order{ID: 7, PaymentStatus: domain.PaymentPending}
		m.repo.On("FindByID", mock.Anything, uint64(7)).Return(order, nil)

		view, err := svc.GetPaymentStatus(context.Background(), 7)

		assert.NoError(t, err)
		assert.False(t, view.IsExpired)
		assert.Zero(t, view.Confirmations)
		assert.Zero(t, view.AmountReceived)
	})
}

func TestOrderService_CancelOrder(t *testing.T) {
	cancellableOrder := func(status domain.PaymentStatus) *domain.Order {
		o := testAddressCryptoOrder(8, status, time.Now().UTC().Add(time.Hour))
		o.Items = []domain.OrderItem{
			{OrderID: 8, ProductID: TestProductID, Name: "Test Product", UnitPrice: 10000, Quantity: 2, Subtotal: 20000},
		}
		return o
	}

	t.Run("requester must own the order", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		m.repo.On("FindByID", mock.Anything, uint64(8)).Return(cancellableOrder(domain.PaymentPending), nil)

		_, err := svc.CancelOrder(context.Background(), 8, "someone-else")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("shipped orders cannot be cancelled", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		order := cancellableOrder(domain.PaymentCompleted)
		order.FulfillmentStatus = domain.FulfillmentShipped
		m.repo.On("FindByID", mock.Anything, uint64(8)).Return(order, nil)

		_, err := svc.CancelOrder(context.Background(), 8, TestOwnerKey)
		assert.ErrorIs(t, err, domain.ErrNotCancellable)
	})

	t.Run("unpaid cancel restores stock without refund", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		order := cancellableOrder(domain.PaymentPending)

		m.repo.On("FindByID", mock.Anything, uint64(8)).Return(order, nil)
		m.repo.On("Mutate", mock.Anything, uint64(8), "", mock.Anything).
			Return(nil).Run(func(args mock.Arguments) {
			fn := args.Get(3).(func(*domain.Order) error)
			assert.NoError(t, fn(order))
		})
		m.catalog.On("AdjustStock", mock.Anything, TestProductID, int64(2)).Return(nil)
		m.dispatcher.On("DispatchCancelled", mock.Anything, mock.AnythingOfType("*domain.Order"), false).Maybe()

		result, err := svc.CancelOrder(context.Background(), 8, TestOwnerKey)

		assert.NoError(t, err)
		assert.Empty(t, result.RefundID)
		assert.Equal(t, domain.PaymentCancelled, result.Order.PaymentStatus)
		assert.Equal(t, domain.FulfillmentCancelled, result.Order.FulfillmentStatus)
		m.address.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
		m.catalog.AssertExpectations(t)
	})

	t.Run("paid cancel issues a refund through the originating rail", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		order := cancellableOrder(domain.PaymentCompleted)
		order.PaymentDetails.AddressCrypto.AmountReceived = 1_000_000

		m.repo.On("FindByID", mock.Anything, uint64(8)).Return(order, nil)
		m.repo.On("Mutate", mock.Anything, uint64(8), "", mock.Anything).
			Return(nil).Run(func(args mock.Arguments) {
			fn := args.Get(3).(func(*domain.Order) error)
			assert.NoError(t, fn(order))
		})
		m.catalog.On("AdjustStock", mock.Anything, TestProductID, int64(2)).Return(nil)
		m.address.On("Refund", mock.Anything, mock.AnythingOfType("*domain.Order")).Return("ref-77", nil)
		m.dispatcher.On("DispatchCancelled", mock.Anything, mock.AnythingOfType("*domain.Order"), true).Maybe()

		result, err := svc.CancelOrder(context.Background(), 8, TestOwnerKey)

		assert.NoError(t, err)
		assert.Equal(t, "ref-77", result.RefundID)
		// Payment stays completed; only fulfillment flips to cancelled.
		assert.Equal(t, domain.PaymentCompleted, result.Order.PaymentStatus)
		assert.Equal(t, domain.FulfillmentCancelled, result.Order.FulfillmentStatus)
	})

	t.Run("refund failure never fails the cancellation", func(t *testing.T) {
		svc, m := newTestOrderService(Config{})
		order := cancellableOrder(domain.PaymentCompleted)
		order.PaymentDetails.AddressCrypto.AmountReceived = 1_000_000

		m.repo.On("FindByID", mock.Anything, uint64(8)).Return(order, nil)
		m.repo.On("Mutate", mock.Anything, uint64(8), "", mock.Anything).
			Return(nil).Run(func(args mock.Arguments) {
			fn := args.Get(3).(func(*domain.Order) error)
			assert.NoError(t, fn(order))
		})
		m.catalog.On("AdjustStock", mock.Anything, TestProductID, int64(2)).Return(nil)
		m.address.On("Refund", mock.Anything, mock.AnythingOfType("*domain.Order")).
			Return("", errors.New("provider refused"))
		m.dispatcher.On("DispatchCancelled", mock.Anything, mock.AnythingOfType("*domain.Order"), false).Maybe()

		result, err := svc.CancelOrder(context.Background(), 8, TestOwnerKey)

		assert.NoError(t, err)
		assert.Empty(t, result.RefundID)
		assert.Error(t, result.RefundErr)
	})
}
