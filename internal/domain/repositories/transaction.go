package repositories

import "context"

// TxFn runs with a context carrying the open transaction
type TxFn func(ctx context.Context) error

// TransactionManager runs a unit of work atomically. Nested calls join the
// outer transaction.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
