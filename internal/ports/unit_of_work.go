package ports

import "context"

// Tx is the adapter's transaction handle, a *gorm.DB for the gorm adapters.
type Tx interface{}

// UnitOfWork commits when fn returns nil and rolls back otherwise.
// Repositories called with the ctx passed to fn join the transaction.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) Tx {
	return ctx.Value(txKey{})
}
