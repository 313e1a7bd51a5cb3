package metrics

import "context"

// Repository persists precomputed metrics batches.
type Repository interface {
	// Replace swaps the whole batch for the key in one transaction: readers
	// see either the previous batch or the new one, never a mix.
	Replace(ctx context.Context, key Key, rows []PlayerMetrics) error

	// List returns the batch ordered by weighted win rate then opponent
	// strength, descending, nil rates last. limit <= 0 means no limit.
	List(ctx context.Context, key Key, limit int) ([]PlayerMetrics, error)
}
