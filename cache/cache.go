package cache

import "context"

type CacheKiller interface {
	// Delete every cached ownership entry of the customer.
	// Deleting a customer that has nothing cached is not an error.
	DeleteFromCache(ctx context.Context, customerID string) error

	// Check the cache store is reachable.
	Health(ctx context.Context) error
}
