package storage

import "context"

// KV is the durable key-value slot the cart store persists into. Read
// reports absence through the bool rather than an error so callers can
// distinguish "no snapshot yet" from a broken backend.
type KV interface {
	Read(ctx context.Context, key string) (value string, ok bool, err error)
	Write(ctx context.Context, key, value string) error
}
