package database

import "context"

// CustomerPurger purges a customer's ownership cache and reports the outcome.
type CustomerPurger interface {
	PurgeCustomer(ctx context.Context, customerID string) error
}

type DBListener interface {
	// Listen blocks until ctx is done or the listener fails.
	Listen(ctx context.Context, purger CustomerPurger) error
}
