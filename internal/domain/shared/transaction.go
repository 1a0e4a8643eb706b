package shared

import "context"

// TransactionManager executes a function within a single storage transaction.
// Repository calls made with the context passed to fn join that transaction,
// and every write made inside it is rolled back when fn returns an error.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
