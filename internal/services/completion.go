package services

import (
	"context"
	"time"

	"payment-service/internal/domain"
	"payment-service/internal/infra"
	"payment-service/internal/infra/rabbitmq"

	"go.uber.org/zap"
)

// Referral credit awarded on completion, in basis points of the order total.
const referralCreditBps = 100

// Dispatcher triggers the side effects of a terminal order state. All of it
// is fire-and-forget: a downstream outage must never touch the authoritative
// payment record.
type Dispatcher interface {
	DispatchCompleted(ctx context.Context, order *domain.Order)
	DispatchCancelled(ctx context.Context, order *domain.Order, refunded bool)
}

type CompletionDispatcher struct {
	publisher rabbitmq.PublisherInterface
	referral  infra.ReferralClientInterface
	log       *zap.Logger
}

func NewCompletionDispatcher(pub rabbitmq.PublisherInterface, referral infra.ReferralClientInterface, log *zap.Logger) *CompletionDispatcher {
	return &CompletionDispatcher{publisher: pub, referral: referral, log: log}
}

// DispatchCompleted publishes the completion event for the notification
// consumers and credits the referral balance. Failures are logged only.
func (d *CompletionDispatcher) DispatchCompleted(ctx context.Context, order *domain.Order) {
	evt := domain.OrderCompletedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OwnerKey:    order.OwnerKey,
		Total:       order.Total,
		Rail:        order.PaymentMethod,
		CompletedAt: time.Now().UTC(),
	}
	if err := d.publisher.Publish(ctx, "order.completed", evt); err != nil {
		d.log.Error("failed to publish order.completed",
			zap.Uint64("order_id", order.ID),
			zap.Error(err))
	}

	credit := order.Total * referralCreditBps / 10000
	if credit > 0 {
		if err := d.referral.Credit(ctx, order.OwnerKey, order.OrderNumber, credit); err != nil {
			d.log.Error("referral credit failed",
				zap.Uint64("order_id", order.ID),
				zap.Int64("credit", credit),
				zap.Error(err))
		}
	}
}

func (d *CompletionDispatcher) DispatchCancelled(ctx context.Context, order *domain.Order, refunded bool) {
	evt := domain.OrderCancelledEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OwnerKey:    order.OwnerKey,
		Refunded:    refunded,
		CancelledAt: time.Now().UTC(),
	}
	if err := d.publisher.Publish(ctx, "order.cancelled", evt); err != nil {
		d.log.Error("failed to publish order.cancelled",
			zap.Uint64("order_id", order.ID),
			zap.Error(err))
	}
}

var _ Dispatcher = (*CompletionDispatcher)(nil)
