package mysql

import (
	"context"
	"errors"

	"payment-service/internal/domain"
	"payment-service/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewOrderRepository(db *gorm.DB, log *zap.Logger) repository.OrderRepository {
	return &orderRepo{db: db, log: log}
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	db := repository.DBFromContext(ctx, r.db)
	if err := db.Create(order).Error; err != nil {
		r.log.Error("order create failed", zap.Error(err))
		return err
	}
	if order.ID == 0 {
		return errors.New("order saved but no id was assigned")
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *orderRepo) FindByPaymentAddress(ctx context.Context, address string) (*domain.Order, error) {
	if address == "" {
		return nil, nil
	}
	return r.findOne(ctx, "payment_address = ?", address)
}

func (r *orderRepo) FindByProviderRef(ctx context.Context, ref string) (*domain.Order, error) {
	if ref == "" {
		return nil, nil
	}
	return r.findOne(ctx, "provider_ref = ?", ref)
}

func (r *orderRepo) findOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	db := repository.DBFromContext(ctx, r.db)
	var o domain.Order
	err := db.Preload("Items").Preload("StatusHistory").Where(query, arg).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error("order lookup failed", zap.Error(err))
		return nil, err
	}
	return &o, nil
}

// Mutate serializes concurrent payment transitions for one order through a
// SELECT ... FOR UPDATE read-modify-write. The processed-event ledger insert
// shares the transaction, so a replayed webhook either sees its own earlier
// write and aborts, or loses the row lock race and aborts on the unique key.
func (r *orderRepo) Mutate(ctx context.Context, orderID uint64, eventID string, fn func(o *domain.Order) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if eventID != "" {
			var n int64
			if err := tx.Model(&domain.ProcessedWebhookEvent{}).
				Where("event_id = ?", eventID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return domain.ErrDuplicateEvent
			}
		}

		var o domain.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").Preload("StatusHistory").
			First(&o, orderID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrOrderNotFound
			}
			return err
		}

		if err := fn(&o); err != nil {
			return err
		}

		if err := tx.Omit("Items", "StatusHistory").Save(&o).Error; err != nil {
			return err
		}
		for i := range o.StatusHistory {
			if o.StatusHistory[i].ID != 0 {
				continue
			}
			o.StatusHistory[i].OrderID = o.ID
			if err := tx.Create(&o.StatusHistory[i]).Error; err != nil {
				return err
			}
		}

		if eventID != "" {
			rec := domain.ProcessedWebhookEvent{
				EventID: eventID,
				Rail:    o.PaymentMethod,
				OrderID: o.ID,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
