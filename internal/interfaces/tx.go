package interfaces

import "context"

// TxManager hands out queriers: the shared pool for plain reads and a
// transaction scope for multi-statement writes.
type TxManager interface {
	// DB returns the pool-backed querier.
	DB() DBTX

	// WithTx runs fn inside a transaction; any error rolls it back.
	WithTx(ctx context.Context, fn func(q DBTX) error) error
}
