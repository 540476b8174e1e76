package port

import "context"

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ClearIdempotency frees a consumed key (for retry after a fault)
	ClearIdempotency(ctx context.Context, key string) error

	// SetQuantity publishes the committed quantity of a record
	SetQuantity(ctx context.Context, recordID string, quantity int) error

	// GetQuantity reads the cached quantity; ok is false on a cache miss
	GetQuantity(ctx context.Context, recordID string) (quantity int, ok bool, err error)
}
