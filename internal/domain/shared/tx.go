package shared

import "context"

// TxManager runs a function inside a single storage transaction. The
// persistence layer propagates the transaction through the context so that
// repository calls made inside fn share it. Commands that must be atomic
// (grade submission, completion flips, the retroactive title sweep) wrap
// their write sequence in WithinTx.
type TxManager interface {
	// WithinTx executes fn inside one transaction, committing when fn
	// returns nil and rolling back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTxManager satisfies TxManager without transactional semantics. Used by
// in-memory repositories in tests.
type NopTxManager struct{}

// WithinTx runs fn directly.
func (NopTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
