package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"payment-service/internal/domain"
	"payment-service/internal/rails"
	"payment-service/internal/repository"

	"go.uber.org/zap"
)

// WebhookService authenticates provider events and applies them to orders
// idempotently. Concurrent events for one order serialize through the
// repository's locked read-modify-write; duplicate deliveries and events for
// already-terminal orders are replay-safe no-ops.
type WebhookService struct {
	repo       repository.OrderRepository
	registry   *rails.Registry
	dispatcher Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

func NewWebhookService(repo repository.OrderRepository, registry *rails.Registry, dispatcher Dispatcher, log *zap.Logger) *WebhookService {
	return &WebhookService{
		repo:       repo,
		registry:   registry,
		dispatcher: dispatcher,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Process handles one inbound provider event. A nil return means the event
// was authenticated and resolved and the provider must receive a success
// acknowledgement, even when the business outcome is underpaid or failed,
// since providers retry on anything but success.
func (s *WebhookService) Process(ctx context.Context, rail domain.PaymentMethod, body []byte, signature string) error {
	adapter, ok := s.registry.Async(rail)
	if !ok {
		return domain.NewValidationError("unknown webhook rail")
	}

	if !adapter.VerifySignature(body, signature) {
		s.log.Warn("webhook signature rejected", zap.String("rail", string(rail)))
		return domain.ErrWebhookAuth
	}

	var ev domain.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return domain.NewValidationError("malformed webhook payload")
	}
	ev.Rail = rail
	if ev.EventID == "" {
		return domain.NewValidationError("webhook payload missing event id")
	}

	order, err := s.resolveOrder(ctx, rail, &ev)
	if err != nil {
		return err
	}
	if order == nil {
		s.log.Warn("webhook for unresolvable key",
			zap.String("rail", string(rail)),
			zap.String("address", ev.Address),
			zap.String("invoice_id", ev.InvoiceID))
		return domain.ErrUnknownWebhookKey
	}

	var completed *domain.Order
	err = s.repo.Mutate(ctx, order.ID, ev.EventID, func(o *domain.Order) error {
		if o.PaymentStatus.IsTerminal() {
			return nil
		}

		// Expiry always wins over whatever the event claims.
		next := domain.PaymentExpired
		note := "payment window expired"
		if !o.IsExpired(s.now()) {
			next = adapter.Classify(o, &ev)
			note = fmt.Sprintf("provider event %s", ev.EventID)
		}

		s.applyDetails(o, &ev)

		if next != o.PaymentStatus {
			if err := o.TransitionPayment(next, note); err != nil {
				return err
			}
		}
		if next == domain.PaymentCompleted {
			copied := *o
			completed = &copied
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			s.log.Debug("duplicate webhook event ignored",
				zap.String("event_id", ev.EventID),
				zap.Uint64("order_id", order.ID))
			return nil
		}
		return err
	}

	s.log.Info("webhook applied",
		zap.String("rail", string(rail)),
		zap.String("event_id", ev.EventID),
		zap.Uint64("order_id", order.ID))

	if completed != nil {
		go s.dispatcher.DispatchCompleted(context.Background(), completed)
	}
	return nil
}

func (s *WebhookService) resolveOrder(ctx context.Context, rail domain.PaymentMethod, ev *domain.WebhookEvent) (*domain.Order, error) {
	switch rail {
	case domain.MethodAddressCrypto:
		return s.repo.FindByPaymentAddress(ctx, ev.Address)
	case domain.MethodInvoiceCrypto:
		return s.repo.FindByProviderRef(ctx, ev.InvoiceID)
	default:
		return nil, domain.NewValidationError("unknown webhook rail")
	}
}

func (s *WebhookService) applyDetails(o *domain.Order, ev *domain.WebhookEvent) {
	at := s.now()
	switch {
	case o.PaymentDetails.AddressCrypto != nil:
		d := o.PaymentDetails.AddressCrypto
		d.AmountReceived = ev.AmountReceived
		d.Confirmations = ev.Confirmations
		if ev.TxHash != "" {
			d.TxHash = ev.TxHash
		}
		d.LastEventAt = &at
	case o.PaymentDetails.InvoiceCrypto != nil:
		d := o.PaymentDetails.InvoiceCrypto
		d.AmountReceived = ev.AmountReceived
		d.Confirmations = ev.Confirmations
		if ev.TxHash != "" {
			d.TxHash = ev.TxHash
		}
		d.LastEventAt = &at
	}
}
