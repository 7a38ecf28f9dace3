package ports

import (
	"context"
	"errors"
	"time"
)

// ErrIdempotencyConflict reports a key reused with a different request body.
var ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")

// IdempotencyRecord ties a client-supplied key to the order it created.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	OrderID     int64
	CreatedAt   time.Time
}

// IdempotencyStore remembers which order each idempotency key produced.
type IdempotencyStore interface {
	// Get returns nil without error when the key is unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Save stores record. A key already bound to a different hash or order returns the stored record with ErrIdempotencyConflict.
	Save(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
}
