package services

import (
	"context"

	"github.com/iota-uz/orgchart/pkg/composables"
)

// TxRunner opens the bulk transaction and the per-item savepoints inside it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(txCtx context.Context) error) error
	InSavepoint(ctx context.Context, fn func(spCtx context.Context) error) error
}

// PgTxRunner runs on the pool carried by the context.
type PgTxRunner struct{}

func (PgTxRunner) InTx(ctx context.Context, fn func(context.Context) error) error {
	return composables.InTx(ctx, fn)
}

func (PgTxRunner) InSavepoint(ctx context.Context, fn func(context.Context) error) error {
	return composables.InSavepoint(ctx, fn)
}
