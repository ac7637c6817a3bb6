package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"payment-service/internal/domain"
	"payment-service/internal/infra"
	"payment-service/internal/rails"
	"payment-service/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config holds orchestrator behavior toggles.
type Config struct {
	// PromoFailOpen controls what happens when the promotion service is
	// unreachable mid-checkout: true proceeds without the discount (logged),
	// false fails the checkout.
	PromoFailOpen bool
}

type OrderService struct {
	repo        repository.OrderRepository
	exec        repository.TxExecutor
	catalog     infra.CatalogClientInterface
	cart        infra.CartClientInterface
	shipping    infra.ShippingClientInterface
	promotions  infra.PromotionClientInterface
	registry    *rails.Registry
	dispatcher  Dispatcher
	cfg         Config
	log         *zap.Logger
	redisClient *redis.Client
}

func NewOrderService(
	repo repository.OrderRepository,
	exec repository.TxExecutor,
	catalog infra.CatalogClientInterface,
	cart infra.CartClientInterface,
	shipping infra.ShippingClientInterface,
	promotions infra.PromotionClientInterface,
	registry *rails.Registry,
	dispatcher Dispatcher,
	cfg Config,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		repo:       repo,
		exec:       exec,
		catalog:    catalog,
		cart:       cart,
		shipping:   shipping,
		promotions: promotions,
		registry:   registry,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log,
	}
}

// SetRedisClient enables the product snapshot cache in front of the catalog.
func (s *OrderService) SetRedisClient(client *redis.Client) {
	s.redisClient = client
}

type CreateOrderInput struct {
	OwnerKey         string
	ShippingAddress  domain.Address
	BillingAddress   domain.Address
	ShippingMethodID string
	PaymentMethod    domain.PaymentMethod
}

// CreateOrder converts the owner's cart into a pending order: it revalidates
// every line against the live catalog, prices shipping and at most one
// promotion, and commits stock decrement, order insert and cart clear as one
// unit. For the gateway rail the provider order is created up front so the
// response carries the approval URL; the crypto rails initiate later via
// InitiateAsyncPayment.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, *rails.ProviderHandle, error) {
	if in.ShippingAddress.IsZero() {
		return nil, nil, domain.NewValidationError("shipping address is required")
	}
	if in.ShippingMethodID == "" {
		return nil, nil, domain.NewValidationError("shipping method is required")
	}
	if !in.PaymentMethod.Valid() {
		return nil, nil, domain.NewValidationError("unknown payment method")
	}

	cart, err := s.cart.GetCart(ctx, in.OwnerKey)
	if err != nil {
		return nil, nil, err
	}
	if cart.Empty() {
		return nil, nil, domain.ErrEmptyCart
	}
	if err := cart.Validate(); err != nil {
		return nil, nil, err
	}

	items, subtotal, err := s.revalidateItems(ctx, cart)
	if err != nil {
		return nil, nil, err
	}

	shippingCost, err := s.shipping.Quote(ctx, in.ShippingMethodID, cart, in.ShippingAddress)
	if err != nil {
		return nil, nil, err
	}

	discount, shippingCost, promoCode, err := s.applyPromotion(ctx, cart, items, subtotal, shippingCost)
	if err != nil {
		return nil, nil, err
	}

	billing := in.BillingAddress
	if billing.IsZero() {
		billing = in.ShippingAddress
	}

	order := &domain.Order{
		OrderNumber:       uuid.NewString(),
		OwnerKey:          in.OwnerKey,
		Items:             items,
		ShippingAddress:   in.ShippingAddress,
		BillingAddress:    billing,
		ShippingMethodID:  in.ShippingMethodID,
		Subtotal:          subtotal,
		ShippingCost:      shippingCost,
		Discount:          discount,
		Total:             subtotal + shippingCost - discount,
		PromoCode:         promoCode,
		PaymentMethod:     in.PaymentMethod,
		PaymentStatus:     domain.PaymentPending,
		FulfillmentStatus: domain.FulfillmentPending,
		StatusHistory: []domain.StatusChange{
			{Status: domain.PaymentPending, Note: "order created"},
		},
	}

	// The gateway provider order is created before anything is committed so
	// a provider outage leaves no orphan order behind.
	var handle *rails.ProviderHandle
	if in.PaymentMethod == domain.MethodGateway {
		gw, ok := s.registry.Sync(in.PaymentMethod)
		if !ok {
			return nil, nil, domain.NewServiceUnavailable(in.PaymentMethod, errors.New("rail not configured"))
		}
		handle, err = gw.Initiate(ctx, order)
		if err != nil {
			return nil, nil, err
		}
		order.PaymentDetails.Gateway = &domain.GatewayDetails{
			ProviderOrderID: handle.ProviderOrderID,
			ApprovalURL:     handle.ApprovalURL,
		}
		order.ProviderRef = handle.ProviderOrderID
	} else if _, ok := s.registry.Get(in.PaymentMethod); !ok {
		return nil, nil, domain.NewServiceUnavailable(in.PaymentMethod, errors.New("rail not configured"))
	}

	if err := s.commitOrder(ctx, order, cart); err != nil {
		return nil, nil, err
	}

	if promoCode != "" {
		if err := s.promotions.IncrementUsage(ctx, promoCode); err != nil {
			s.log.Warn("promotion usage increment failed",
				zap.String("code", promoCode),
				zap.Uint64("order_id", order.ID),
				zap.Error(err))
		}
	}

	s.log.Info("order committed",
		zap.Uint64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("rail", string(order.PaymentMethod)),
		zap.Int64("total", order.Total))

	return order, handle, nil
}

// revalidateItems prices every cart line from the live catalog in parallel.
// Cart-cached prices are never trusted.
func (s *OrderService) revalidateItems(ctx context.Context, cart *domain.CartSnapshot) ([]domain.OrderItem, int64, error) {
	items := make([]domain.OrderItem, len(cart.Items))
	g, gctx := errgroup.WithContext(ctx)
	for i, ci := range cart.Items {
		i, ci := i, ci
		g.Go(func() error {
			prod, err := s.getProduct(gctx, ci.ProductID)
			if err != nil {
				return err
			}
			if prod == nil || !prod.IsActive {
				return &domain.UnavailableProductError{ProductID: ci.ProductID}
			}
			if int64(ci.Quantity) > prod.StockQuantity {
				return &domain.InsufficientStockError{
					ProductID: ci.ProductID,
					Requested: ci.Quantity,
					Available: prod.StockQuantity,
				}
			}
			items[i] = domain.OrderItem{
				ProductID: prod.ID,
				Name:      prod.Name,
				Slug:      prod.Slug,
				UnitPrice: prod.Price,
				Quantity:  ci.Quantity,
				Subtotal:  prod.Price * int64(ci.Quantity),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var subtotal int64
	for _, it := range items {
		subtotal += it.Subtotal
	}
	return items, subtotal, nil
}

func (s *OrderService) applyPromotion(ctx context.Context, cart *domain.CartSnapshot, items []domain.OrderItem, subtotal, shippingCost int64) (int64, int64, string, error) {
	if cart.PromoCode == "" {
		return 0, shippingCost, "", nil
	}

	promo, err := s.promotions.Resolve(ctx, cart.PromoCode)
	if err != nil {
		if s.cfg.PromoFailOpen {
			s.log.Warn("promotion lookup failed, proceeding without discount",
				zap.String("code", cart.PromoCode),
				zap.Error(err))
			return 0, shippingCost, "", nil
		}
		return 0, 0, "", err
	}
	if promo == nil {
		return 0, shippingCost, "", domain.NewValidationError("promotion code not found")
	}

	discount, shipping, err := promo.Apply(items, subtotal, shippingCost)
	if err != nil {
		return 0, 0, "", err
	}
	return discount, shipping, promo.Code, nil
}

// commitOrder is the atomic cart-to-order conversion: stock decrement, order
// insert and cart clear all land or none do. Stock lives in the external
// catalog, so a failure after decrement triggers compensating restores.
func (s *OrderService) commitOrder(ctx context.Context, order *domain.Order, cart *domain.CartSnapshot) error {
	decremented := make([]domain.OrderItem, 0, len(order.Items))
	for _, it := range order.Items {
		if err := s.catalog.AdjustStock(ctx, it.ProductID, -int64(it.Quantity)); err != nil {
			s.restoreStock(ctx, decremented)
			return err
		}
		decremented = append(decremented, it)
	}

	err := s.exec.Execute(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, order); err != nil {
			return err
		}
		return s.cart.ClearCart(txCtx, cart.OwnerKey)
	})
	if err != nil {
		s.restoreStock(ctx, decremented)
		return err
	}
	return nil
}

func (s *OrderService) restoreStock(ctx context.Context, items []domain.OrderItem) {
	for _, it := range items {
		if err := s.catalog.AdjustStock(ctx, it.ProductID, int64(it.Quantity)); err != nil {
			s.log.Error("stock restore failed",
				zap.Uint64("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(err))
		}
	}
}

// CaptureOrder finalizes a gateway payment. This is the only rail where
// commit and completion share one call: the provider's redirect already
// proved user intent, so a successful capture moves the order straight to
// completed in the same mutation that records the capture id.
func (s *OrderService) CaptureOrder(ctx context.Context, orderID uint64, providerOrderID string) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.PaymentMethod != domain.MethodGateway {
		return nil, domain.NewValidationError("order is not on the gateway rail")
	}
	details := order.PaymentDetails.Gateway
	if details == nil || details.ProviderOrderID != providerOrderID {
		return nil, domain.NewValidationError("provider order id does not match")
	}
	if order.PaymentStatus != domain.PaymentPending {
		return nil, domain.ErrIllegalTransition
	}

	gw, ok := s.registry.Sync(domain.MethodGateway)
	if !ok {
		return nil, domain.NewServiceUnavailable(domain.MethodGateway, errors.New("rail not configured"))
	}
	result, err := gw.Capture(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}

	var captured *domain.Order
	err = s.repo.Mutate(ctx, orderID, "", func(o *domain.Order) error {
		if o.PaymentStatus != domain.PaymentPending {
			return domain.ErrIllegalTransition
		}
		if err := o.TransitionPayment(domain.PaymentCompleted, "gateway capture "+result.CaptureID); err != nil {
			return err
		}
		o.PaymentDetails.Gateway.CaptureID = result.CaptureID
		copied := *o
		captured = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.dispatcher.DispatchCompleted(context.Background(), captured)

	return captured, nil
}

// InitiateAsyncPayment requests an address or hosted invoice for a pending
// crypto-rail order and locks the exchange rate for the payment window.
func (s *OrderService) InitiateAsyncPayment(ctx context.Context, orderID uint64) (*rails.ProviderHandle, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if !order.PaymentMethod.IsAsync() {
		return nil, domain.NewValidationError("order is not on an asynchronous rail")
	}
	if order.PaymentStatus != domain.PaymentPending {
		return nil, domain.ErrIllegalTransition
	}

	adapter, ok := s.registry.Get(order.PaymentMethod)
	if !ok {
		return nil, domain.NewServiceUnavailable(order.PaymentMethod, errors.New("rail not configured"))
	}
	handle, err := adapter.Initiate(ctx, order)
	if err != nil {
		return nil, err
	}

	err = s.repo.Mutate(ctx, orderID, "", func(o *domain.Order) error {
		if o.PaymentStatus != domain.PaymentPending {
			return domain.ErrIllegalTransition
		}
		switch o.PaymentMethod {
		case domain.MethodAddressCrypto:
			o.PaymentDetails.AddressCrypto = &domain.AddressCryptoDetails{
				Address:               handle.Address,
				LockedRate:            handle.LockedRate,
				CryptoAmount:          handle.CryptoAmount,
				RequiredConfirmations: 2,
			}
			o.PaymentAddress = handle.Address
		case domain.MethodInvoiceCrypto:
			o.PaymentDetails.InvoiceCrypto = &domain.InvoiceCryptoDetails{
				InvoiceID:             handle.InvoiceID,
				InvoiceURL:            handle.InvoiceURL,
				Address:               handle.Address,
				LockedRate:            handle.LockedRate,
				CryptoAmount:          handle.CryptoAmount,
				RequiredConfirmations: 10,
			}
			o.PaymentAddress = handle.Address
			o.ProviderRef = handle.InvoiceID
		}
		o.ExpiresAt = handle.ExpiresAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// PaymentStatusView is the polled payment state for an order. IsExpired is
// computed from the clock, never from provider-reported fields.
type PaymentStatusView struct {
	OrderID        uint64               `json:"orderId"`
	PaymentStatus  domain.PaymentStatus `json:"paymentStatus"`
	Confirmations  int                  `json:"confirmations"`
	IsExpired      bool                 `json:"isExpired"`
	AmountReceived int64                `json:"amountReceived"`
}

func (s *OrderService) GetPaymentStatus(ctx context.Context, orderID uint64) (*PaymentStatusView, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	view := &PaymentStatusView{
		OrderID:       order.ID,
		PaymentStatus: order.PaymentStatus,
		IsExpired:     order.IsExpired(time.Now().UTC()),
	}
	switch {
	case order.PaymentDetails.AddressCrypto != nil:
		view.Confirmations = order.PaymentDetails.AddressCrypto.Confirmations
		view.AmountReceived = order.PaymentDetails.AddressCrypto.AmountReceived
	case order.PaymentDetails.InvoiceCrypto != nil:
		view.Confirmations = order.PaymentDetails.InvoiceCrypto.Confirmations
		view.AmountReceived = order.PaymentDetails.InvoiceCrypto.AmountReceived
	}
	return view, nil
}

// FindByWebhookKey resolves an order by its rail-specific lookup key, used
// by the HTTP layer to invalidate the status cache after a webhook applies.
func (s *OrderService) FindByWebhookKey(ctx context.Context, rail domain.PaymentMethod, address, invoiceID string) (*domain.Order, error) {
	switch rail {
	case domain.MethodAddressCrypto:
		return s.repo.FindByPaymentAddress(ctx, address)
	case domain.MethodInvoiceCrypto:
		return s.repo.FindByProviderRef(ctx, invoiceID)
	default:
		return nil, nil
	}
}

func (s *OrderService) GetOrderById(ctx context.Context, id uint64) (*domain.Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// CancelResult reports the side effects of a cancellation. Refund failures
// are recorded, never fatal.
type CancelResult struct {
	Order     *domain.Order
	RefundID  string
	RefundErr error
}

// CancelOrder reverses a still-cancellable order: it marks payment and
// fulfillment cancelled, restores stock per line item, and issues a refund
// through the originating rail when funds were captured.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uint64, requester string) (*CancelResult, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.OwnerKey != requester {
		return nil, domain.ErrForbidden
	}
	if !order.Cancellable() {
		return nil, domain.ErrNotCancellable
	}

	wasPaid := false
	var cancelled *domain.Order
	err = s.repo.Mutate(ctx, orderID, "", func(o *domain.Order) error {
		if !o.Cancellable() {
			return domain.ErrNotCancellable
		}
		wasPaid = o.PaymentStatus == domain.PaymentCompleted
		if !o.PaymentStatus.IsTerminal() {
			if err := o.TransitionPayment(domain.PaymentCancelled, "cancelled by requester"); err != nil {
				return err
			}
		} else {
			o.StatusHistory = append(o.StatusHistory, domain.StatusChange{
				OrderID: o.ID,
				Status:  o.PaymentStatus,
				Note:    "order cancelled after payment, refund pending",
			})
		}
		o.FulfillmentStatus = domain.FulfillmentCancelled
		copied := *o
		cancelled = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.restoreStock(ctx, cancelled.Items)

	result := &CancelResult{Order: cancelled}
	if wasPaid {
		if adapter, ok := s.registry.Get(cancelled.PaymentMethod); ok {
			refundID, refundErr := adapter.Refund(ctx, cancelled)
			result.RefundID = refundID
			result.RefundErr = refundErr
			note := "refund issued: " + refundID
			if refundErr != nil {
				note = "refund failed: " + refundErr.Error()
				s.log.Error("refund on cancellation failed",
					zap.Uint64("order_id", cancelled.ID),
					zap.String("rail", string(cancelled.PaymentMethod)),
					zap.Error(refundErr))
			}
			_ = s.repo.Mutate(ctx, orderID, "", func(o *domain.Order) error {
				o.StatusHistory = append(o.StatusHistory, domain.StatusChange{
					OrderID: o.ID,
					Status:  o.PaymentStatus,
					Note:    note,
				})
				return nil
			})
		}
	}

	go s.dispatcher.DispatchCancelled(context.Background(), cancelled, result.RefundID != "")

	return result, nil
}

// getProduct is a redis read-through in front of the catalog client.
func (s *OrderService) getProduct(ctx context.Context, productID uint64) (*infra.ProductInfo, error) {
	cacheKey := fmt.Sprintf("product:%d", productID)

	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var prod infra.ProductInfo
			if err := json.Unmarshal([]byte(cached), &prod); err == nil {
				return &prod, nil
			}
		}
	}

	prod, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if s.redisClient != nil && prod != nil {
		if data, err := json.Marshal(prod); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, time.Minute)
		}
	}
	return prod, nil
}
