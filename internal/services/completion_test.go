package services

import (
	"context"
	"errors"
	"testing"

	"payment-service/internal/domain"
	"payment-service/internal/mocks"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestCompletionDispatcher_DispatchCompleted(t *testing.T) {
	order := &domain.Order{
		ID:            1,
		OrderNumber:   "ord-1",
		OwnerKey:      TestOwnerKey,
		Total:         11000,
		PaymentMethod: domain.MethodGateway,
	}

	t.Run("publishes event and credits referral", func(t *testing.T) {
		pub := new(mocks.MockPublisher)
		referral := new(mocks.MockReferralClient)
		d := NewCompletionDispatcher(pub, referral, zap.NewNop())

		pub.On("Publish", mock.Anything, "order.completed", mock.AnythingOfType("domain.OrderCompletedEvent")).
			Return(nil)
		referral.On("Credit", mock.Anything, TestOwnerKey, "ord-1", int64(110)).Return(nil)

		d.DispatchCompleted(context.Background(), order)

		pub.AssertExpectations(t)
		referral.AssertExpectations(t)
	})

	t.Run("downstream failures are swallowed", func(t *testing.T) {
		pub := new(mocks.MockPublisher)
		referral := new(mocks.MockReferralClient)
		d := NewCompletionDispatcher(pub, referral, zap.NewNop())

		pub.On("Publish", mock.Anything, "order.completed", mock.Anything).
			Return(errors.New("broker down"))
		referral.On("Credit", mock.Anything, TestOwnerKey, "ord-1", int64(110)).
			Return(errors.New("referral down"))

		// Must not panic or propagate anything.
		d.DispatchCompleted(context.Background(), order)
	})
}

func TestCompletionDispatcher_DispatchCancelled(t *testing.T) {
	pub := new(mocks.MockPublisher)
	referral := new(mocks.MockReferralClient)
	d := NewCompletionDispatcher(pub, referral, zap.NewNop())

	pub.On("Publish", mock.Anything, "order.cancelled", mock.AnythingOfType("domain.OrderCancelledEvent")).
		Return(nil)

	d.DispatchCancelled(context.Background(), &domain.Order{ID: 2, OrderNumber: "ord-2", OwnerKey: TestOwnerKey}, true)

	pub.AssertExpectations(t)
	referral.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
