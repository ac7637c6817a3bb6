package repository

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type txKey struct{}

// TxExecutor scopes a function to one atomic unit. The cart-to-order commit
// runs through this so the order insert and cart clear either all land or
// none do, when the storage engine can deliver that.
type TxExecutor interface {
	Execute(ctx context.Context, fn func(txCtx context.Context) error) error
}

// TransactionalExecutor wraps gorm transactions; repository calls made with
// the ctx it passes to fn join the same transaction.
type TransactionalExecutor struct {
	db *gorm.DB
}

func (e *TransactionalExecutor) Execute(ctx context.Context, fn func(txCtx context.Context) error) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// BestEffortExecutor runs fn without a surrounding transaction. Partial
// failure leaves compensation to the caller; every use is logged so the
// reduced-consistency mode is never silent.
type BestEffortExecutor struct {
	db  *gorm.DB
	log *zap.Logger
}

func (e *BestEffortExecutor) Execute(ctx context.Context, fn func(txCtx context.Context) error) error {
	e.log.Warn("executing commit in best-effort mode, storage lacks multi-statement transactions")
	return fn(ctx)
}

// NewExecutor probes the database for transaction support at startup and
// picks the strategy once, instead of string-matching errors at call time.
func NewExecutor(db *gorm.DB, log *zap.Logger) TxExecutor {
	if err := db.Transaction(func(tx *gorm.DB) error { return nil }); err != nil {
		log.Warn("storage does not support transactions, falling back to best-effort commits", zap.Error(err))
		return &BestEffortExecutor{db: db, log: log}
	}
	return &TransactionalExecutor{db: db}
}

// DBFromContext returns the transaction bound to ctx by a
// TransactionalExecutor, or fallback outside any transaction scope.
func DBFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}
