package inventory

import "context"

// Repository defines the atomic stock operations. Both methods are
// all-or-nothing over the whole batch.
type Repository interface {
	// Reserve decrements stock for every line in one transaction. Each
	// decrement is conditional on sufficient stock, so two concurrent
	// checkouts can never drive a counter negative. Returns
	// *StockConflictError if any line cannot be covered.
	Reserve(ctx context.Context, lines []Line) error

	// Release increments stock for every line, guarded by the order's
	// stock_reserved flag: the flag flip and the increments commit in the
	// same transaction, and a second call for the same order is a no-op.
	// Returns whether the release was applied.
	Release(ctx context.Context, orderID string, lines []Line) (bool, error)
}
