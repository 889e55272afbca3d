package repository

import (
	"context"

	"github.com/fastygo/greenbite/domain"
)

// IdentityChannel carries sign-in and sign-out events.
const IdentityChannel = "identities"

// ChangeFeed fans document changes out to subscribers of a collection.
type ChangeFeed interface {
	Publish(ctx context.Context, change domain.Change) error
	Subscribe(ctx context.Context, collection string) (Subscription, error)
}

// Subscription delivers changes until Close is called or its context ends.
type Subscription interface {
	Changes() <-chan domain.Change
	Close() error
}

// Cache is a byte-oriented cache with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
}
