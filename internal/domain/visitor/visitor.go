// Package visitor defines the site visitor counter.
package visitor

import "context"

// CounterRowID is the id of the single row holding the running total
const CounterRowID = 1

// Counter is a monotonically increasing page-visit total
type Counter interface {
	// Increment adds one visit and returns the new total
	Increment(ctx context.Context) (int64, error)
	// Current returns the total without changing it
	Current(ctx context.Context) (int64, error)
}
